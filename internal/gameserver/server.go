package gameserver

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/gameserver/serverpackets"
)

// Server is the GameServer that accepts game client connections.
type Server struct {
	cfg      config.GameServer
	auth     AuthValidator
	charRepo CharacterRepository

	sendPool  *BytePool
	readPool  *BytePool
	writePool *BytePool // pool-backed buffers handed to GameClient.writePump
	handler   *Handler

	clientManager *ClientManager

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates a new GameServer. auth validates an AuthLogin's session
// key against the login server; charRepo answers character selection.
func NewServer(cfg config.GameServer, auth AuthValidator, charRepo CharacterRepository) (*Server, error) {
	clientMgr := NewClientManager()
	writePool := NewBytePool(constants.GameServerWriteBufSize)

	s := &Server{
		cfg:           cfg,
		auth:          auth,
		charRepo:      charRepo,
		sendPool:      NewBytePool(constants.GameServerWriteBufSize),
		readPool:      NewBytePool(constants.GameServerWriteBufSize),
		writePool:     writePool,
		handler:       NewHandler(auth, charRepo, clientMgr),
		clientManager: clientMgr,
	}

	return s, nil
}

// generateBlowfishKey creates a fresh 16-byte random key for the rolling
// XOR cipher (reused, despite the name, from the LS Blowfish-key shape).
func generateBlowfishKey() ([]byte, error) {
	key := make([]byte, constants.BlowfishKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating blowfish key: %w", err)
	}
	for i, b := range key {
		if b == 0 {
			key[i] = 1
		}
	}
	return key, nil
}

// Addr returns the address the server is listening on.
// Returns nil if the server hasn't started yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ClientManager returns the client manager for this server.
func (s *Server) ClientManager() *ClientManager {
	return s.clientManager
}

// Close closes the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run begins listening for game client connections.
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

// Serve accepts connections from the given listener and starts the accept loop.
// Used for testing with custom listeners.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("game server started", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	}()

	wg.Wait()

	return nil
}

func acceptLoop(ctx context.Context, wg *sync.WaitGroup, srv *Server, ln net.Listener) {
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
				slog.Error("failed to accept new connection", "error", err)
				continue
			}

			if tcpConn, ok := conn.(*net.TCPConn); ok {
				if err := tcpConn.SetKeepAlive(true); err != nil {
					slog.Warn("set keepalive failed", "error", err)
				}
				if err := tcpConn.SetKeepAlivePeriod(30 * time.Second); err != nil {
					slog.Warn("set keepalive period failed", "error", err)
				}
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				handleConnection(ctx, srv, conn)
			}()
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	var accountName string
	defer func() {
		if accountName != "" {
			srv.clientManager.Unregister(accountName)
			slog.Debug("client unregistered", "account", accountName)
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
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
	slog.Info("new game client connection", "remote", host)

	blowfishKey, err := generateBlowfishKey()
	if err != nil {
		slog.Error("failed to generate blowfish key", "error", err)
		return
	}

	sendQueueSize := srv.cfg.SendQueueSize
	writeTimeout := srv.cfg.WriteTimeout
	client, err := NewGameClient(conn, blowfishKey, srv.writePool, sendQueueSize, writeTimeout)
	if err != nil {
		slog.Error("failed to create game client", "error", err)
		return
	}

	keyBuf := make([]byte, constants.PacketHeaderSize+64)
	n := serverpackets.KeyPacket(keyBuf[constants.PacketHeaderSize:], blowfishKey)
	if err := writeGamePacket(conn, client.GameCrypt(), keyBuf, n); err != nil {
		slog.Error("failed to send KeyPacket", "error", err)
		return
	}
	slog.Debug("sent KeyPacket", "client", client.IP())

	go client.writePump()
	defer client.Close()

	readTimeout := srv.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := handlePacket(ctx, srv, client, readTimeout); err != nil {
				accountName = client.AccountName()
				if err == io.EOF {
					slog.Info("client disconnected", "account", accountName, "client", client.IP())
				} else {
					slog.Error("packet handling error", "error", err, "client", client.IP())
				}
				return
			}
			if client.State() >= ClientStateAuthenticated && accountName == "" {
				accountName = client.AccountName()
			}
		}
	}
}

func handlePacket(ctx context.Context, srv *Server, client *GameClient, readTimeout time.Duration) error {
	readBuf := srv.readPool.Get(constants.GameServerWriteBufSize)
	defer srv.readPool.Put(readBuf)

	if err := client.Conn().SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}

	payload, err := readGamePacket(client.Conn(), client.GameCrypt(), readBuf)
	if err != nil {
		return fmt.Errorf("reading packet: %w", err)
	}

	sendBuf := srv.sendPool.Get(constants.GameServerWriteBufSize)
	defer srv.sendPool.Put(sendBuf)

	n, keepOpen, err := srv.handler.HandlePacket(ctx, client, payload, sendBuf[constants.PacketHeaderSize:])
	if err != nil {
		return fmt.Errorf("handling packet: %w", err)
	}

	if n > 0 {
		pooled := srv.writePool.Get(constants.PacketHeaderSize + n)
		copy(pooled[constants.PacketHeaderSize:], sendBuf[constants.PacketHeaderSize:constants.PacketHeaderSize+n])
		client.GameCrypt().Encrypt(pooled[constants.PacketHeaderSize:])
		binary.LittleEndian.PutUint16(pooled[:constants.PacketHeaderSize], uint16(constants.PacketHeaderSize+n))

		writeTimeout := srv.cfg.WriteTimeout
		if writeTimeout <= 0 {
			writeTimeout = defaultWriteTimeout
		}
		if err := client.SendSync(pooled, writeTimeout); err != nil {
			return fmt.Errorf("queueing response: %w", err)
		}
	}

	if !keepOpen {
		return fmt.Errorf("handler requested connection close")
	}

	return nil
}
