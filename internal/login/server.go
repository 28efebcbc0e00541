package login

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/l2emu/core/internal/broker"
	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/db"
	"github.com/l2emu/core/internal/login/serverpackets"
	"github.com/l2emu/core/internal/protocol"
	"github.com/l2emu/core/internal/registry"
)

// ServerOption is a functional option for Server configuration.
type ServerOption func(**SessionManager)

// WithSessionManager sets a custom SessionManager (useful for testing with shared SessionManager).
func WithSessionManager(sm *SessionManager) ServerOption {
	return func(current **SessionManager) {
		*current = sm
	}
}

// Server is the LoginServer that accepts client connections on port 2106.
type Server struct {
	cfg            config.LoginServer
	db             *db.DB
	sessionManager *SessionManager

	rsaKeyPairs []*crypto.RSAKeyPair
	sendPool    *BytePool
	readPool    *BytePool
	handler     *Handler

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a new LoginServer with pre-generated RSA key pairs.
// Blowfish keys are generated fresh per connection.
func NewServer(cfg config.LoginServer, database *db.DB, opts ...ServerOption) (*Server, error) {
	sessionManager := NewSessionManager()

	// Применяем опции
	for _, opt := range opts {
		if opt != nil {
			opt(&sessionManager)
		}
	}

	// Создаём AccountRepository для Handler
	accountRepo := db.NewPostgresAccountRepository(database.Pool())

	s := &Server{
		cfg:            cfg,
		db:             database,
		sessionManager: sessionManager,
		sendPool:       NewBytePool(constants.DefaultSendBufSize),
		readPool:       NewBytePool(constants.DefaultReadBufSize),
		handler:        NewHandler(accountRepo, cfg, sessionManager),
	}

	// Pre-generate RSA key pairs (expensive operation — ~10-50ms each)
	poolSize := cfg.RSAKeyPairPoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	slog.Info("generating RSA key pairs", "count", poolSize)
	s.rsaKeyPairs = make([]*crypto.RSAKeyPair, poolSize)
	for i := range poolSize {
		kp, err := crypto.GenerateRSAKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generating RSA key pair %d: %w", i, err)
		}
		s.rsaKeyPairs[i] = kp
	}

	return s, nil
}

// SessionManager возвращает менеджер сессий (для интеграции с gslistener).
func (s *Server) SessionManager() *SessionManager {
	return s.sessionManager
}

// SetPlayerRegistry wires the shared Player Registry into this server's
// handler, enabling the single-login kick path in handleRequestAuthLogin.
// Must be called before Run/Serve — the handler is not safe to rewire
// concurrently with live traffic.
func (s *Server) SetPlayerRegistry(pr *registry.PlayerRegistry) {
	s.handler.playerRegistry = pr
}

// SetGSHandlers wires the shared GS handler registry (broker.Sink lookup
// by GS id) into this server's handler.
func (s *Server) SetGSHandlers(gh *registry.HandlerRegistry[int]) {
	s.handler.gsHandlers = gh
}

// SetBroker wires the shared GS request broker into this server's handler.
func (s *Server) SetBroker(b *broker.Broker[int]) {
	s.handler.reqBroker = b
}

// SetGSTable wires the shared GS registry so the server list is assembled
// from live registrations instead of the static config entries.
func (s *Server) SetGSTable(t *registry.GSRegistry) {
	s.handler.gsTable = t
}

// generateBlowfishKey creates a fresh 16-byte random Blowfish key.
func generateBlowfishKey() ([]byte, error) {
	key := make([]byte, constants.BlowfishKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating blowfish key: %w", err)
	}
	// Ensure no zero bytes (L2 client requirement: bytes 1-255)
	for i, b := range key {
		if b == 0 {
			key[i] = 1
		}
	}
	return key, nil
}

// Addr возвращает адрес, на котором слушает сервер.
// Возвращает nil если сервер ещё не запущен.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close закрывает listener и останавливает сервер.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run begins listening for client connections.
// Создаёт listener на cfg.BindAddress:cfg.Port и запускает accept loop.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve принимает готовый listener и запускает accept loop.
// Используется для тестирования с произвольным listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("login server started", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	})

	wg.Wait()

	return nil
}

func acceptLoop(
	ctx context.Context,
	wg *sync.WaitGroup,
	srv *Server,
	ln net.Listener,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("Failed to accept new connection", "error", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		slog.Error("Failed to split host port", "connection", conn.RemoteAddr(), "error", err)
		return
	}

	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		slog.Warn("refusing non-IPv4 peer", "remote", host)
		return
	}
	slog.Info("new connection", "remote", host)

	rsaKeyPair := srv.rsaKeyPairs[mathrand.IntN(len(srv.rsaKeyPairs))]
	bfKey, err := generateBlowfishKey()
	if err != nil {
		slog.Error("failed to generate blowfish key", "err", err, "remote", host)
		return
	}

	enc, err := crypto.NewLoginEncryption(bfKey)
	if err != nil {
		slog.Error("failed to create login encryption", "err", err, "remote", host)
		return
	}

	client, err := NewClient(conn, rsaKeyPair)
	if err != nil {
		slog.Error("failed to create client", "err", err, "remote", host)
		return
	}

	sendBuf := srv.sendPool.Get(constants.DefaultSendBufSize)
	// Send Init packet — write payload into sendBuf[2:], then WritePacket encrypts in-place
	n := serverpackets.Init(sendBuf[2:], client.SessionID(), rsaKeyPair.ScrambledModulus, bfKey)
	if err := protocol.WritePacket(conn, enc, sendBuf, n); err != nil {
		srv.sendPool.Put(sendBuf)
		slog.Error("failed to send Init packet", "err", err, "remote", host)
		return
	}
	srv.sendPool.Put(sendBuf)
	slog.Debug("Init packet sent", "remote", host, "sessionId", client.SessionID())

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if ok, err := handlePacket(ctx, client, enc, srv); !ok {
				return
			} else if err != nil {
				slog.Error("Failed to handle packet", "remote", conn.RemoteAddr(), "error", err)
			}
		}
	}
}

func handlePacket(
	ctx context.Context,
	cli *Client,
	enc *crypto.LoginEncryption,
	srv *Server,
) (bool, error) {
	sendBuf := srv.sendPool.Get(constants.DefaultSendBufSize)
	defer srv.sendPool.Put(sendBuf)
	readBuf := srv.readPool.Get(constants.DefaultReadBufSize)
	defer srv.readPool.Put(readBuf)

	if srv.cfg.ClientTimeoutSeconds > 0 {
		deadline := time.Now().Add(time.Duration(srv.cfg.ClientTimeoutSeconds) * time.Second)
		if err := cli.conn.SetReadDeadline(deadline); err != nil {
			return false, fmt.Errorf("set read deadline: %w", err)
		}
	}

	data, err := protocol.ReadPacket(cli.conn, enc, readBuf)
	if err != nil {
		return false, fmt.Errorf("read packet: %w", err)
	}

	minInterval := time.Duration(srv.cfg.ClientPacketIntervalMillis) * time.Millisecond
	if !cli.AllowPacket(minInterval) {
		return true, nil
	}

	// Handler writes response payload into sendBuf[2:]
	n, ok, err := srv.handler.HandlePacket(ctx, cli, data, sendBuf[2:])
	if err != nil {
		return false, fmt.Errorf("handle packet: %w", err)
	}

	if n > 0 {
		if err := protocol.WritePacket(cli.conn, enc, sendBuf, n); err != nil {
			return false, fmt.Errorf("write packet: %w", err)
		}
	}

	return ok, nil
}
