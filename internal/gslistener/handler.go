package gslistener

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/l2emu/core/internal/broker"
	"github.com/l2emu/core/internal/config"
	"github.com/l2emu/core/internal/crypto"
	"github.com/l2emu/core/internal/gameserver"
	"github.com/l2emu/core/internal/gslistener/clientpackets"
	"github.com/l2emu/core/internal/gslistener/serverpackets"
	"github.com/l2emu/core/internal/login"
	"github.com/l2emu/core/internal/registry"
)

// Handler processes inbound GS→LS packets and drives the shared
// GS/Player/Handler registries plus the request broker that correlates
// LS→GS asks (RequestChars, KickPlayer, PlayerAuthResponse) with replies.
type Handler struct {
	cfg            config.LoginServer
	gsTable        *registry.GSRegistry
	playerRegistry *registry.PlayerRegistry
	gsHandlers     *registry.HandlerRegistry[int]
	reqBroker      *broker.Broker[int]
	sessionManager *login.SessionManager

	allowedHexIDs map[string]struct{} // lowercase hex, empty = admit any
}

// NewHandler creates a handler for GS↔LS packets.
func NewHandler(
	cfg config.LoginServer,
	gsTable *registry.GSRegistry,
	playerRegistry *registry.PlayerRegistry,
	gsHandlers *registry.HandlerRegistry[int],
	reqBroker *broker.Broker[int],
	sessionManager *login.SessionManager,
) *Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedHexIDs))
	for _, id := range cfg.AllowedHexIDs {
		allowed[strings.ToLower(id)] = struct{}{}
	}
	return &Handler{
		cfg:            cfg,
		gsTable:        gsTable,
		playerRegistry: playerRegistry,
		gsHandlers:     gsHandlers,
		reqBroker:      reqBroker,
		sessionManager: sessionManager,
		allowedHexIDs:  allowed,
	}
}

// hexIDAllowed reports whether the hex id passes the configured allow-list.
func (h *Handler) hexIDAllowed(hexID []byte) bool {
	if len(h.allowedHexIDs) == 0 {
		return true
	}
	_, ok := h.allowedHexIDs[hex.EncodeToString(hexID)]
	return ok
}

// HandlePacket dispatches by (state, opcode) to a handler function. Writes
// the response payload into buf. Returns n (bytes written, 0 = nothing to
// send) and ok (false = close the connection after sending).
func (h *Handler) HandlePacket(
	ctx context.Context,
	conn *GSConnection,
	data, buf []byte,
) (int, bool, error) {
	if len(data) == 0 {
		return 0, false, fmt.Errorf("empty packet")
	}

	opcode := data[0]
	body := data[1:]
	state := conn.State()

	switch state {
	case gameserver.GSStateConnected:
		switch opcode {
		case OpcodeGSBlowFishKey:
			return handleBlowFishKey(ctx, h, conn, body, buf)
		default:
			return 0, true, fmt.Errorf("invalid opcode 0x%02x for state CONNECTED", opcode)
		}

	case gameserver.GSStateBFConnected:
		switch opcode {
		case OpcodeGSGameServerAuth:
			return handleGameServerAuth(ctx, h, conn, body, buf)
		default:
			return 0, true, fmt.Errorf("invalid opcode 0x%02x for state BF_CONNECTED", opcode)
		}

	case gameserver.GSStateAuthed, gameserver.GSStateRegistered:
		switch opcode {
		case OpcodeGSPlayerInGame:
			return handlePlayerInGame(ctx, h, conn, body, buf)
		case OpcodeGSPlayerLogout:
			return handlePlayerLogout(ctx, h, conn, body, buf)
		case OpcodeGSPlayerAuthRequest:
			return handlePlayerAuthRequest(ctx, h, conn, body, buf)
		case OpcodeGSServerStatus:
			return handleServerStatus(ctx, h, conn, body, buf)
		case OpcodeGSReplyCharacters:
			return handleReplyCharacters(ctx, h, conn, body, buf)
		case OpcodeGSChangePassword:
			// Out of scope forwarder: decoded implicitly by being skipped,
			// never surfaced to a real account-password path.
			return 0, true, nil
		case OpcodeGSRequestTempBan:
			return handleRequestTempBan(ctx, h, conn, body, buf)
		default:
			return 0, false, fmt.Errorf("unknown opcode 0x%02x", opcode)
		}

	default:
		return 0, true, fmt.Errorf("invalid connection state: %v", state)
	}
}

func handleBlowFishKey(_ context.Context, _ *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.BlowFishKey
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing BlowFishKey packet: %w", err)
	}

	rsaKeyPair := conn.RSAKeyPair()
	decryptedBlock, err := crypto.RSADecryptNoPadding(rsaKeyPair.PrivateKey, pkt.EncryptedKey)
	if err != nil {
		return 0, false, fmt.Errorf("RSA decrypt failed: %w", err)
	}

	// RSA-512 decrypts to 64 bytes; the Blowfish key is the last 40.
	const blowfishKeySize = 40
	if len(decryptedBlock) < blowfishKeySize {
		return 0, false, fmt.Errorf("decrypted block too short: got %d, want at least %d", len(decryptedBlock), blowfishKeySize)
	}
	decryptedKey := decryptedBlock[len(decryptedBlock)-blowfishKeySize:]

	newCipher, err := crypto.NewBlowfishCipher(decryptedKey)
	if err != nil {
		return 0, false, fmt.Errorf("creating new Blowfish cipher: %w", err)
	}
	conn.SetBlowfishCipher(newCipher)
	conn.SetState(gameserver.GSStateBFConnected)

	slog.Info("BlowFishKey processed successfully", "ip", conn.IP(), "state", "BF_CONNECTED")
	return 0, true, nil
}

func handleGameServerAuth(_ context.Context, h *Handler, conn *GSConnection, body []byte, buf []byte) (int, bool, error) {
	var pkt clientpackets.GameServerAuth
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing GameServerAuth packet: %w", err)
	}

	requestedID := int(pkt.ID)

	if !h.hexIDAllowed(pkt.HexID) {
		slog.Warn("hexID not in allow-list", "id", requestedID, "ip", conn.IP())
		n := serverpackets.LoginServerFail(buf, gameserver.ReasonWrongHexID)
		return n, false, nil
	}

	existingInfo, exists := h.gsTable.GetByID(requestedID)

	if exists {
		if bytes.Equal(existingInfo.HexID(), pkt.HexID) {
			if existingInfo.IsAuthed() {
				slog.Warn("GameServer already authenticated", "id", requestedID, "ip", conn.IP())
				n := serverpackets.LoginServerFail(buf, gameserver.ReasonAlreadyLoggedIn)
				return n, false, nil
			}
			return finalizeRegistration(h, conn, existingInfo, pkt, buf)
		}

		if pkt.AcceptAlternate {
			newInfo := registry.NewGameServerInfo(0, pkt.HexID)
			assignedID, ok := h.gsTable.RegisterWithFirstAvailableID(newInfo, 127)
			if !ok {
				slog.Warn("no free server ID available", "requested_id", requestedID, "ip", conn.IP())
				n := serverpackets.LoginServerFail(buf, gameserver.ReasonNoFreeID)
				return n, false, nil
			}
			slog.Info("registered GameServer with alternative ID", "requested_id", requestedID, "assigned_id", assignedID, "ip", conn.IP())
			return finalizeRegistration(h, conn, newInfo, pkt, buf)
		}

		slog.Warn("wrong hexID", "id", requestedID, "ip", conn.IP())
		n := serverpackets.LoginServerFail(buf, gameserver.ReasonWrongHexID)
		return n, false, nil
	}

	if !h.cfg.AcceptNewGameServer {
		slog.Warn("new GameServer registration not allowed", "id", requestedID, "ip", conn.IP())
		n := serverpackets.LoginServerFail(buf, gameserver.ReasonWrongHexID)
		return n, false, nil
	}

	newInfo := registry.NewGameServerInfo(requestedID, pkt.HexID)
	if !h.gsTable.Register(requestedID, newInfo) {
		slog.Warn("server ID reserved (race condition)", "id", requestedID, "ip", conn.IP())
		n := serverpackets.LoginServerFail(buf, gameserver.ReasonIDReserved)
		return n, false, nil
	}

	slog.Info("registered new GameServer", "id", requestedID, "ip", conn.IP())
	return finalizeRegistration(h, conn, newInfo, pkt, buf)
}

// finalizeRegistration completes GS registration: updates the registry
// entry, registers the connection as a broker sink, sends AuthResponse.
func finalizeRegistration(h *Handler, conn *GSConnection, info *registry.GameServerInfo, pkt clientpackets.GameServerAuth, buf []byte) (int, bool, error) {
	info.SetPort(int(pkt.Port))
	info.SetMaxPlayers(int(pkt.MaxPlayers))
	info.SetHosts(convertHostEntries(pkt.Hosts))
	info.SetAuthed(true)

	conn.AttachGameServerInfo(info)
	conn.SetState(gameserver.GSStateAuthed)
	h.gsHandlers.Register(info.ID(), conn)

	serverID := byte(info.ID())
	serverName := fmt.Sprintf("Server %d", info.ID())
	n := serverpackets.AuthResponse(buf, serverID, serverName)

	slog.Info("GameServer authenticated successfully",
		"id", info.ID(), "port", info.Port(), "maxPlayers", info.MaxPlayers(), "ip", conn.IP())
	return n, true, nil
}

// convertHostEntries turns the wire's (subnet, host) string pairs into
// registry.HostEntry values, skipping malformed entries rather than failing
// the whole registration — a single bad CIDR shouldn't drop the GS.
func convertHostEntries(hosts []clientpackets.HostEntry) []registry.HostEntry {
	out := make([]registry.HostEntry, 0, len(hosts))
	for _, h := range hosts {
		cidr := h.Subnet
		if cidr == "" {
			cidr = "0.0.0.0/0"
		}
		_, subnet, err := net.ParseCIDR(cidr)
		if err != nil {
			slog.Warn("skipping malformed host entry", "subnet", h.Subnet, "host", h.Host, "err", err)
			continue
		}
		ip := net.ParseIP(h.Host)
		if ip == nil {
			slog.Warn("skipping host entry with invalid ip", "host", h.Host)
			continue
		}
		out = append(out, registry.HostEntry{Subnet: subnet, IP: ip})
	}
	return out
}

func handlePlayerInGame(_ context.Context, h *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.PlayerInGame
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing PlayerInGame packet: %w", err)
	}

	gsInfo := conn.GameServerInfo()
	if gsInfo == nil {
		return 0, false, fmt.Errorf("PlayerInGame received but GameServer not authenticated")
	}

	for _, account := range pkt.Accounts {
		conn.AddAccount(account)
	}
	h.playerRegistry.OnPlayersInGame(gsInfo.ID(), pkt.Accounts)

	slog.Info("players registered as online", "count", len(pkt.Accounts), "server_id", gsInfo.ID(), "ip", conn.IP())
	return 0, true, nil
}

func handlePlayerLogout(_ context.Context, h *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.PlayerLogout
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing PlayerLogout packet: %w", err)
	}

	conn.RemoveAccount(pkt.Account)
	h.playerRegistry.OnPlayerLeftGame(pkt.Account)

	gsInfo := conn.GameServerInfo()
	if gsInfo != nil {
		slog.Info("player logged out", "account", pkt.Account, "server_id", gsInfo.ID(), "ip", conn.IP())
	}
	return 0, true, nil
}

func handlePlayerAuthRequest(_ context.Context, h *Handler, conn *GSConnection, body []byte, buf []byte) (int, bool, error) {
	var pkt clientpackets.PlayerAuthRequest
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing PlayerAuthRequest packet: %w", err)
	}

	valid := h.sessionManager.Validate(pkt.Account, pkt.SessionKey, h.cfg.ShowLicence)
	if valid {
		h.sessionManager.Remove(pkt.Account)
		slog.Info("player session validated successfully", "account", pkt.Account)
	} else {
		slog.Warn("player session validation failed", "account", pkt.Account)
	}

	n := serverpackets.PlayerAuthResponse(buf, pkt.Account, valid)
	return n, true, nil
}

func handleServerStatus(_ context.Context, _ *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.ServerStatus
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing ServerStatus packet: %w", err)
	}

	gsInfo := conn.GameServerInfo()
	if gsInfo == nil {
		return 0, false, fmt.Errorf("ServerStatus received but GameServer not authenticated")
	}

	// Attribute tags: 1=status, 2=type, 3=brackets, 4=max_players,
	// 5=test (folded into serverType's ServerTest bit, no separate field),
	// 6=age.
	for _, attr := range pkt.Attributes {
		switch attr.ID {
		case gameserver.ServerListStatus:
			gsInfo.SetStatus(int(attr.Value))
		case gameserver.ServerType_:
			gsInfo.SetServerType(int(attr.Value))
		case gameserver.ServerListSquareBracket:
			gsInfo.SetShowingBrackets(attr.Value != 0)
		case gameserver.MaxPlayers:
			gsInfo.SetMaxPlayers(int(attr.Value))
		case gameserver.ServerListTest:
			// No dedicated field; test-mode servers carry ServerTest in
			// serverType's bitmask instead, so this is informational only.
			slog.Debug("server status test flag received", "server_id", gsInfo.ID(), "value", attr.Value)
		case gameserver.ServerAge:
			gsInfo.SetAgeLimit(int(attr.Value))
		default:
			slog.Warn("unknown ServerStatus attribute", "id", attr.ID, "value", attr.Value)
		}
	}

	conn.SetState(gameserver.GSStateRegistered)

	slog.Info("server status updated",
		"server_id", gsInfo.ID(), "status", gsInfo.Status(), "maxPlayers", gsInfo.MaxPlayers(), "ip", conn.IP())
	return 0, true, nil
}

// handleReplyCharacters resolves the matching RequestChars Ask (keyed by
// account name) with this GS's character census.
func handleReplyCharacters(_ context.Context, h *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.ReplyCharacters
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing ReplyCharacters packet: %w", err)
	}

	gsInfo := conn.GameServerInfo()
	var gsID int
	if gsInfo != nil {
		gsID = gsInfo.ID()
	}

	account, ok := conn.PopPendingCharRequest()
	if !ok {
		slog.Warn("ReplyChars received with no pending RequestChars", "server_id", gsID, "ip", conn.IP())
		return 0, true, nil
	}

	// The census lands in the Player Registry regardless of whether the
	// broker waiter is still alive — ServerList assembly reads it from
	// there, so a reply that beat the timeout is never wasted.
	h.playerRegistry.UpdateChars(gsID, account, registry.CharsOnServer{
		TotalChars:       pkt.TotalChars,
		DeletionSchedule: pkt.DeletionSchedule,
	})
	h.reqBroker.Respond(gsID, account, pkt)
	return 0, true, nil
}

// handleRequestTempBan bans an account+IP for N seconds. Out of scope for
// enforcement (no ban store exists yet) but must be decoded, not dropped
// silently, so a future ban-list implementation has a clear attach point.
func handleRequestTempBan(_ context.Context, _ *Handler, conn *GSConnection, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.RequestTempBan
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing RequestTempBan packet: %w", err)
	}
	slog.Warn("temp ban requested (not enforced)", "account", pkt.Account, "ip", pkt.IP, "duration_s", pkt.DurationSeconds, "requested_by", conn.IP())
	return 0, true, nil
}
