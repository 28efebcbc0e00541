package login

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/constants"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/broker"
	"github.com/l2emu/core/internal/db"
	"github.com/l2emu/core/internal/gameserver"
	gsserverpackets "github.com/l2emu/core/internal/gslistener/serverpackets"
	"github.com/l2emu/core/internal/login/serverpackets"
	"github.com/l2emu/core/internal/registry"
)

// Client packet opcodes
const (
	OpcodeRequestAuthLogin   = 0x00
	OpcodeRequestServerLogin = 0x02
	OpcodeRequestServerList  = 0x05
	OpcodeAuthGameGuard      = 0x07
)

// Handler processes login packets. Singleton — один на сервер.
type Handler struct {
	accounts       AccountRepository
	cfg            config.LoginServer
	sessionManager *SessionManager

	// playerRegistry/gsHandlers/reqBroker/gsTable are nil until wired by
	// Server.SetPlayerRegistry/SetGSHandlers/SetBroker/SetGSTable — tests
	// that only exercise the AUTHED_GG→AUTHED_LOGIN path can leave them
	// unset, since the single-login-kick path degrades to a log line and
	// the server list falls back to the static config entries without them.
	playerRegistry *registry.PlayerRegistry
	gsHandlers     *registry.HandlerRegistry[int]
	reqBroker      *broker.Broker[int]
	gsTable        *registry.GSRegistry
}

// charRequestTracker is the slice of the GS connection the server-list path
// needs: remembering which account a just-sent RequestChars was for, so the
// GS's ReplyChars (which carries no account field) can be matched back.
type charRequestTracker interface {
	PushPendingCharRequest(account string)
}

// NewHandler creates a packet handler.
func NewHandler(accounts AccountRepository, cfg config.LoginServer, sessionManager *SessionManager) *Handler {
	return &Handler{
		accounts:       accounts,
		cfg:            cfg,
		sessionManager: sessionManager,
	}
}

// HandlePacket dispatches a decrypted packet to the appropriate handler.
// Writes response into buf. Returns: n — bytes written to buf (0 = nothing to send),
// ok — true if connection stays open (false = close after sending).
func (h *Handler) HandlePacket(
	ctx context.Context,
	client *Client,
	data, buf []byte,
) (int, bool, error) {
	if len(data) == 0 {
		return 0, false, fmt.Errorf("empty packet data")
	}

	opcode := data[0]
	body := data[1:]

	switch opcode {
	case OpcodeAuthGameGuard:
		return handleAuthGameGuard(client, body, buf)
	case OpcodeRequestAuthLogin:
		return h.handleRequestAuthLogin(ctx, client, body, buf)
	case OpcodeRequestServerList:
		return h.handleRequestServerList(ctx, client, body, buf)
	case OpcodeRequestServerLogin:
		return h.handleRequestServerLogin(client, body, buf)
	default:
		slog.Warn("unknown login packet opcode", "opcode", fmt.Sprintf("0x%02X", opcode), "client", client.IP())
		return 0, true, nil
	}
}

func closeFail(buf []byte, reason byte) (int, bool) {
	return serverpackets.LoginFail(buf, reason), false
}

// trimCred strips the NUL/space padding the client pads credential fields
// with.
func trimCred(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

// handleAuthGameGuard processes opcode 0x07 in state CONNECTED.
func handleAuthGameGuard(client *Client, data, buf []byte) (int, bool, error) {
	if client.State() != StateConnected {
		slog.Warn("AuthGameGuard in wrong state", "state", client.State(), "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	if len(data) < 4 {
		return 0, false, fmt.Errorf("AuthGameGuard packet too short: %d", len(data))
	}

	sessionID := int32(binary.LittleEndian.Uint32(data[:4]))

	if sessionID != client.SessionID() {
		slog.Warn("session ID mismatch in AuthGameGuard",
			"expected", client.SessionID(),
			"got", sessionID,
			"client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	client.SetState(StateAuthedGG)
	slog.Debug("GameGuard auth OK", "client", client.IP())
	return serverpackets.GGAuth(buf, client.SessionID()), true, nil
}

// kickPlayer satisfies registry.KickFunc. A targeted kick addresses one GS
// by id; a broadcast reaches every currently-registered GS (the LS does not
// know which one, if any, still thinks the account is online).
func (h *Handler) kickPlayer(accountName string, gsID int, broadcast bool) {
	if h.gsHandlers == nil {
		slog.Warn("kick requested but no GS handler registry wired", "account", accountName)
		return
	}
	if broadcast {
		for id, sink := range h.gsHandlers.Snapshot() {
			buf := make([]byte, constants.DefaultSendBufSize)
			n := gsserverpackets.KickPlayer(buf, accountName)
			if err := sink.Send(buf[:n]); err != nil {
				slog.Warn("broadcast kick failed", "account", accountName, "gs_id", id, "err", err)
			}
		}
		return
	}
	sink, ok := h.gsHandlers.Get(gsID)
	if !ok {
		slog.Warn("targeted kick: GS not registered", "account", accountName, "gs_id", gsID)
		return
	}
	buf := make([]byte, constants.DefaultSendBufSize)
	n := gsserverpackets.KickPlayer(buf, accountName)
	if err := sink.Send(buf[:n]); err != nil {
		slog.Warn("targeted kick failed", "account", accountName, "gs_id", gsID, "err", err)
	}
}

// handleRequestAuthLogin processes opcode 0x00 in state AUTHED_GG.
func (h *Handler) handleRequestAuthLogin(
	ctx context.Context,
	client *Client,
	data, buf []byte,
) (int, bool, error) {
	if client.State() != StateAuthedGG {
		slog.Warn("RequestAuthLogin in wrong state", "state", client.State(), "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	if len(data) < 128 {
		slog.Warn("RequestAuthLogin packet too short", "size", len(data), "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	decrypted, err := crypto.RSADecryptNoPadding(client.RSAKeyPair().PrivateKey, data[:128])
	if err != nil {
		slog.Warn("RSA decryption failed", "err", err, "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	var login, password string
	if len(data) >= 256 {
		// New-auth form: a second RSA block, credentials at the dual-block
		// offsets with the username split across the boundary.
		second, err := crypto.RSADecryptNoPadding(client.RSAKeyPair().PrivateKey, data[128:256])
		if err != nil {
			slog.Warn("RSA decryption of second block failed", "err", err, "client", client.IP())
			n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
			return n, ok, nil
		}
		plain := append(decrypted, second...)
		login = trimCred(plain[constants.NewAuthUsernamePart1Offset:constants.NewAuthUsernamePart1Offset+constants.NewAuthUsernamePart1Length]) +
			trimCred(plain[constants.NewAuthUsernamePart2Offset:constants.NewAuthUsernamePart2Offset+constants.NewAuthUsernamePart2Length])
		password = trimCred(plain[constants.NewAuthPasswordOffset : constants.NewAuthPasswordOffset+constants.NewAuthPasswordLength])
	} else {
		login = trimCred(decrypted[constants.AuthLoginUsernameOffset : constants.AuthLoginUsernameOffset+constants.AuthLoginUsernameMaxLength])
		password = trimCred(decrypted[constants.AuthLoginPasswordOffset : constants.AuthLoginPasswordOffset+constants.AuthLoginPasswordMaxLength])
	}

	login = strings.ToLower(strings.TrimSpace(login))
	password = strings.TrimSpace(password)

	if login == "" || password == "" {
		slog.Warn("empty login or password", "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonUserOrPassWrong)
		return n, ok, nil
	}

	slog.Info("auth attempt", "login", login, "client", client.IP())

	passHash := db.HashPassword(password)

	acc, err := h.accounts.GetAccount(ctx, login)
	if err != nil {
		slog.Error("database error during auth", "err", err, "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonSystemError)
		return n, ok, nil
	}

	if acc == nil {
		if h.cfg.AutoCreateAccounts {
			// Атомарная операция: получить существующий или создать новый
			// Thread-safe: использует INSERT ... ON CONFLICT для защиты от race conditions
			acc, err = h.accounts.GetOrCreateAccount(ctx, login, passHash, client.IP())
			if err != nil {
				slog.Error("failed to get or create account", "err", err, "client", client.IP())
				n, ok := closeFail(buf, serverpackets.ReasonSystemError)
				return n, ok, nil
			}
		} else {
			n, ok := closeFail(buf, serverpackets.ReasonUserOrPassWrong)
			return n, ok, nil
		}
	}

	if subtle.ConstantTimeCompare([]byte(acc.PasswordHash), []byte(passHash)) != 1 {
		slog.Warn("wrong password", "login", login, "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonUserOrPassWrong)
		return n, ok, nil
	}

	if acc.AccessLevel < 0 {
		slog.Warn("account banned", "login", login, "client", client.IP())
		n := serverpackets.AccountKicked(buf, serverpackets.ReasonPermanentlyBanned)
		return n, false, nil
	}

	sk := NewSessionKey()

	// Single-login invariant: a prior live session for this account name
	// evicts the NEW login, not the other way around. OnPlayerLogin kicks
	// and removes the colliding entry (targeted at its GS if joined,
	// broadcast otherwise) and reports admitted=false; this connection is
	// then rejected with ReasonAccountInUse and closed without ever
	// becoming authed.
	if h.playerRegistry != nil {
		admitted := h.playerRegistry.OnPlayerLogin(login, registry.SessionKey{
			LoginOkID1: sk.LoginOkID1,
			LoginOkID2: sk.LoginOkID2,
			PlayOkID1:  sk.PlayOkID1,
			PlayOkID2:  sk.PlayOkID2,
		}, h.kickPlayer)
		if !admitted {
			slog.Warn("account already in game", "login", login, "client", client.IP())
			n, ok := closeFail(buf, serverpackets.ReasonAccountInUse)
			return n, ok, nil
		}
	}

	client.SetAccount(login)
	client.SetState(StateAuthedLogin)
	client.SetSessionKey(sk)

	// Сохраняем сессию для последующей валидации через GameServer
	h.sessionManager.Store(login, sk, client)

	if err := h.accounts.UpdateLastLogin(ctx, login, client.IP()); err != nil {
		slog.Error("failed to update last login", "err", err)
	}

	slog.Info("auth success", "login", login, "client", client.IP())

	if h.cfg.ShowLicence {
		return serverpackets.LoginOk(
			buf,
			sk.LoginOkID1,
			sk.LoginOkID2,
		), true, nil
	}
	n := h.writeServerList(ctx, client, buf)
	client.SetState(StateServerListed)
	return n, true, nil
}

// handleRequestServerList processes opcode 0x05 in state AUTHED_LOGIN.
func (h *Handler) handleRequestServerList(
	ctx context.Context,
	client *Client,
	data, buf []byte,
) (int, bool, error) {
	if st := client.State(); st != StateAuthedLogin && st != StateServerListed {
		slog.Warn("RequestServerList in wrong state", "state", st, "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	if len(data) < 8 {
		return 0, false, fmt.Errorf("RequestServerList packet too short: %d", len(data))
	}

	skey1 := int32(binary.LittleEndian.Uint32(data[:4]))
	skey2 := int32(binary.LittleEndian.Uint32(data[4:8]))

	sk := client.SessionKey()
	if !sk.CheckLoginPair(skey1, skey2) {
		slog.Warn("login pair mismatch in RequestServerList", "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	n := h.writeServerList(ctx, client, buf)
	client.SetState(StateServerListed)
	return n, true, nil
}

// handleRequestServerLogin processes opcode 0x02 once the account is authed
// (the client may pick a server straight off a licence-less login, without
// re-requesting the list).
func (h *Handler) handleRequestServerLogin(
	client *Client,
	data, buf []byte,
) (int, bool, error) {
	if st := client.State(); st != StateAuthedLogin && st != StateServerListed {
		slog.Warn("RequestServerLogin in wrong state", "state", st, "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	if len(data) < 9 {
		return 0, false, fmt.Errorf("RequestServerLogin packet too short: %d", len(data))
	}

	skey1 := int32(binary.LittleEndian.Uint32(data[:4]))
	skey2 := int32(binary.LittleEndian.Uint32(data[4:8]))
	serverIDByte := data[8]

	sk := client.SessionKey()
	if !sk.CheckLoginPair(skey1, skey2) {
		slog.Warn("login pair mismatch in RequestServerLogin", "client", client.IP())
		n, ok := closeFail(buf, serverpackets.ReasonAccessFailed)
		return n, ok, nil
	}

	if !h.serverKnown(int(serverIDByte)) {
		slog.Warn("unknown server requested", "serverId", serverIDByte, "client", client.IP())
		return serverpackets.PlayFail(buf, serverpackets.ReasonServerOverloaded), true, nil
	}

	client.SetState(StateServerSelected)
	slog.Info("server login OK", "login", client.Account(), "serverId", serverIDByte, "client", client.IP())
	return serverpackets.PlayOk(buf, sk.PlayOkID1, sk.PlayOkID2), true, nil
}

// serverKnown reports whether serverID names a registered (or statically
// configured, when no registry is wired) game server.
func (h *Handler) serverKnown(serverID int) bool {
	if h.gsTable != nil {
		if _, ok := h.gsTable.GetByID(serverID); ok {
			return true
		}
	}
	for _, gs := range h.cfg.GameServers {
		if gs.ID == serverID {
			return true
		}
	}
	return false
}

// writeServerList assembles and writes the server-select list for client.
// Live registry state wins: each registered GS is advertised at the address
// its subnet table resolves for this client's IP, with its current status,
// player count, and — if the census fan-out answered in time — the
// account's character count there. Without a wired registry (or with
// nothing registered yet) the static config entries are advertised instead.
func (h *Handler) writeServerList(ctx context.Context, client *Client, buf []byte) int {
	var servers []serverpackets.ServerInfo

	var registered []*registry.GameServerInfo
	if h.gsTable != nil {
		registered = h.gsTable.List()
	}

	if len(registered) > 0 {
		h.requestCharCounts(ctx, client.Account())

		clientIP := net.ParseIP(client.IP())
		var player *registry.PlayerInfo
		if h.playerRegistry != nil {
			player, _ = h.playerRegistry.Get(client.Account())
		}

		servers = make([]serverpackets.ServerInfo, 0, len(registered))
		for _, gs := range registered {
			up := gs.IsAuthed() && gs.Status() != gameserver.StatusDown
			info := serverpackets.ServerInfo{
				ID:             byte(gs.ID()),
				IP:             gs.ResolveHost(clientIP),
				Port:           int32(gs.Port()),
				AgeLimit:       byte(gs.AgeLimit()),
				PvP:            gs.IsPVP(),
				MaxPlayers:     int16(gs.MaxPlayers()),
				Status:         boolByte(up),
				ServerType:     int32(gs.ServerType()),
				Brackets:       gs.ShowingBrackets(),
			}
			if h.playerRegistry != nil {
				info.CurrentPlayers = int16(h.playerRegistry.CountForGS(gs.ID()))
			}
			if player != nil {
				if census, ok := player.CharsOn(gs.ID()); ok {
					info.CharCount = byte(census.TotalChars)
					info.CharCountKnown = true
				}
			}
			servers = append(servers, info)
		}
	} else {
		servers = make([]serverpackets.ServerInfo, 0, len(h.cfg.GameServers))
		for _, gs := range h.cfg.GameServers {
			servers = append(servers, serverpackets.ServerInfo{
				ID:         byte(gs.ID),
				IP:         net.ParseIP(gs.Host),
				Port:       int32(gs.Port),
				MaxPlayers: int16(constants.DefaultMaxPlayers),
				Status:     byte(constants.DefaultServerStatus),
				ServerType: int32(constants.DefaultServerType),
			})
		}
	}

	var lastServer byte
	if len(servers) > 0 {
		lastServer = servers[0].ID
	}
	return serverpackets.ServerList(buf, servers, lastServer)
}

// requestCharCounts fans RequestChars out to every registered GS,
// correlated by account name, and waits until the replies have landed in
// the Player Registry or the broker timeout passes. A GS that stays silent
// simply contributes no census — the server list omits its character badge
// rather than failing.
func (h *Handler) requestCharCounts(ctx context.Context, account string) {
	if h.reqBroker == nil || h.gsHandlers == nil || account == "" {
		return
	}
	for _, sink := range h.gsHandlers.Snapshot() {
		if tracker, ok := sink.(charRequestTracker); ok {
			tracker.PushPendingCharRequest(account)
		}
	}
	body := make([]byte, constants.DefaultSendBufSize)
	n := gsserverpackets.RequestCharacters(body, account)
	h.reqBroker.AskAll(ctx, account, func(int) []byte { return body[:n] })
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
