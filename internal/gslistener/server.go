package gslistener

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"net"
	"sync"

	"github.com/l2emu/core/internal/broker"
	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/gameserver"
	"github.com/l2emu/core/internal/gslistener/serverpackets"
	"github.com/l2emu/core/internal/login"
	"github.com/l2emu/core/internal/registry"
)

// Server is the GameServer↔LoginServer TCP listener.
type Server struct {
	cfg     config.LoginServer
	gsTable *registry.GSRegistry

	rsaKeyPairs []*crypto.RSAKeyPair
	initialKey  []byte
	sendPool    *BytePool
	readPool    *BytePool
	handler     *Handler

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a GS listener, pre-generating cfg.RSAKeyPairPoolSize
// RSA-512 key pairs up front (eager generation, same timing the login side
// uses for RSA-1024).
// playerRegistry and gsHandlers are shared with the login package so both
// sides of the LS process can reach the same accounts/game-server state;
// reqBroker correlates the LS→GS RequestChars/KickPlayer/PlayerAuthResponse
// traffic this package's handler issues.
func NewServer(
	cfg config.LoginServer,
	gsTable *registry.GSRegistry,
	playerRegistry *registry.PlayerRegistry,
	gsHandlers *registry.HandlerRegistry[int],
	reqBroker *broker.Broker[int],
	sessionManager *login.SessionManager,
) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		gsTable:    gsTable,
		initialKey: []byte(cfg.BlowfishKey),
		sendPool:   NewBytePool(constants.GSListenerSendBufSize),
		readPool:   NewBytePool(constants.GSListenerReadBufSize),
		handler:    NewHandler(cfg, gsTable, playerRegistry, gsHandlers, reqBroker, sessionManager),
	}
	if len(s.initialKey) == 0 {
		s.initialKey = crypto.DefaultGSBlowfishKey
	}

	// Pre-generate RSA-512 key pairs
	poolSize := cfg.RSAKeyPairPoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	slog.Info("generating RSA-512 key pairs for GS listener", "count", poolSize)
	s.rsaKeyPairs = make([]*crypto.RSAKeyPair, poolSize)
	for i := range poolSize {
		kp, err := crypto.GenerateRSAKeyPair512()
		if err != nil {
			return nil, fmt.Errorf("generating RSA-512 key pair %d: %w", i, err)
		}
		s.rsaKeyPairs[i] = kp
	}

	return s, nil
}

// Addr возвращает адрес, на котором слушает GS listener.
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

// Run начинает прослушивание подключений от GameServer.
// Создаёт listener на cfg.GSListenHost:cfg.GSListenPort и запускает accept loop.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.GSListenHost, s.cfg.GSListenPort)
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
	// Graceful shutdown
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("GS listener started", "address", ln.Addr())
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
				slog.Error("failed to accept GS connection", "error", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		slog.Error("failed to split host port", "connection", conn.RemoteAddr(), "error", err)
		return
	}

	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		slog.Warn("refusing non-IPv4 peer", "remote", host)
		return
	}
	slog.Info("GS connected", "remote", host)

	// Select random RSA-512 key
	rsaKeyPair := srv.rsaKeyPairs[mathrand.IntN(len(srv.rsaKeyPairs))]

	// Create GSConnection
	gsConn, err := NewGSConnection(conn, rsaKeyPair, srv.initialKey)
	if err != nil {
		slog.Error("failed to create GS connection", "err", err, "remote", host)
		return
	}

	// Send InitLS packet — write payload into sendBuf[constants.PacketHeaderSize:], then WritePacket encrypts in-place
	sendBuf := srv.sendPool.Get(constants.GSListenerSendBufSize)
	n := serverpackets.InitLS(sendBuf[constants.PacketHeaderSize:], constants.ProtocolRevisionInterlude, rsaKeyPair.ScrambledModulus)
	if err := WritePacket(conn, gsConn.BlowfishCipher(), sendBuf, n); err != nil {
		srv.sendPool.Put(sendBuf)
		slog.Error("failed to send InitLS packet", "err", err, "remote", host)
		return
	}
	srv.sendPool.Put(sendBuf)
	gsConn.SetState(gameserver.GSStateConnected)
	slog.Debug("InitLS packet sent", "remote", host)

	// Packet loop
	for {
		select {
		case <-ctx.Done():
			cleanup(srv, gsConn, host)
			return
		default:
			if ok, err := handlePacket(ctx, gsConn, srv); !ok {
				cleanup(srv, gsConn, host)
				return
			} else if err != nil {
				slog.Error("failed to handle packet", "remote", host, "error", err)
			}
		}
	}
}

func cleanup(srv *Server, conn *GSConnection, host string) {
	info := conn.GameServerInfo()
	if info != nil {
		info.SetDown(gameserver.StatusDown)
		srv.handler.gsHandlers.Unregister(info.ID())
		srv.handler.playerRegistry.RemoveAllForGS(info.ID())
		slog.Info("GS disconnected", "id", info.ID(), "remote", host)
	} else {
		slog.Info("GS disconnected", "remote", host)
	}
}

func handlePacket(
	ctx context.Context,
	conn *GSConnection,
	srv *Server,
) (bool, error) {
	sendBuf := srv.sendPool.Get(constants.GSListenerSendBufSize)
	defer srv.sendPool.Put(sendBuf)
	readBuf := srv.readPool.Get(constants.GSListenerReadBufSize)
	defer srv.readPool.Put(readBuf)

	data, err := ReadPacket(conn.conn, conn.BlowfishCipher(), readBuf)
	if err != nil {
		return false, fmt.Errorf("read packet: %w", err)
	}

	// Handler writes response payload into sendBuf[constants.PacketHeaderSize:]
	n, ok, err := srv.handler.HandlePacket(ctx, conn, data, sendBuf[constants.PacketHeaderSize:])
	if err != nil {
		return false, fmt.Errorf("handle packet: %w", err)
	}

	if n > 0 {
		if err := WritePacket(conn.conn, conn.BlowfishCipher(), sendBuf, n); err != nil {
			return false, fmt.Errorf("write packet: %w", err)
		}
	}

	return ok, nil
}
