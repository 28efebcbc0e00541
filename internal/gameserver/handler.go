package gameserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/l2emu/core/internal/db"
	"github.com/l2emu/core/internal/gameserver/clientpackets"
	"github.com/l2emu/core/internal/gameserver/serverpackets"
	"github.com/l2emu/core/internal/registry"
)

// AuthValidator confirms an account's claimed session key against whatever
// issued it. Satisfied by *gsdial.Client, which turns this into a
// PlayerAuthRequest/PlayerAuthResponse round-trip with the login server.
type AuthValidator interface {
	PlayerAuthRequest(ctx context.Context, account string, key registry.SessionKey) (bool, error)
}

// CharacterRepository answers the character-selection screen.
type CharacterRepository interface {
	ListByAccount(ctx context.Context, accountLogin string) ([]db.CharacterSummary, error)
}

// Handler dispatches one decoded game-client packet per the client's
// connection state. Gameplay beyond the handshake (movement, combat,
// inventory) is out of scope — EnterWorld is the last state transition.
type Handler struct {
	auth     AuthValidator
	charRepo CharacterRepository
	clients  *ClientManager
}

// NewHandler creates the client-packet dispatcher.
func NewHandler(auth AuthValidator, charRepo CharacterRepository, clients *ClientManager) *Handler {
	return &Handler{auth: auth, charRepo: charRepo, clients: clients}
}

// HandlePacket decodes payload per client.State(), dispatches it, and
// writes any reply into out (sized for the caller's send buffer).
// Returns the number of reply bytes written and whether the connection
// should stay open.
func (h *Handler) HandlePacket(ctx context.Context, client *GameClient, payload []byte, out []byte) (int, bool, error) {
	if len(payload) == 0 {
		return 0, false, fmt.Errorf("empty packet")
	}
	opcode := payload[0]
	body := payload[1:]

	switch client.State() {
	case ClientStateConnected:
		if opcode != clientpackets.ProtocolVersionOpcode {
			return 0, false, fmt.Errorf("unexpected opcode 0x%02x in state %s", opcode, client.State())
		}
		return h.handleProtocolVersion(client, body, out)

	case ClientStateProtocolChosen:
		if opcode != clientpackets.AuthLoginOpcode {
			return 0, false, fmt.Errorf("unexpected opcode 0x%02x in state %s", opcode, client.State())
		}
		return h.handleAuthLogin(ctx, client, body, out)

	case ClientStateAuthenticated, ClientStateEntering:
		switch opcode {
		case clientpackets.SelectCharOpcode:
			return h.handleSelectChar(client, body, out)
		case clientpackets.EnterWorldOpcode:
			// Legal only once a character has actually been selected.
			if client.State() != ClientStateEntering {
				return 0, false, fmt.Errorf("EnterWorld before SelectChar in state %s", client.State())
			}
			return h.handleEnterWorld(client, body, out)
		default:
			return 0, false, fmt.Errorf("unexpected opcode 0x%02x in state %s", opcode, client.State())
		}

	default:
		slog.Warn("packet in terminal/in-game state dropped", "state", client.State(), "opcode", fmt.Sprintf("0x%02x", opcode))
		return 0, true, nil
	}
}

func (h *Handler) handleProtocolVersion(client *GameClient, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.ProtocolVersion
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing ProtocolVersion: %w", err)
	}
	if !AllowedProtocolRevisions[pkt.Version] {
		slog.Warn("rejected client protocol revision", "client", client.IP(), "version", pkt.Version)
		return 0, false, nil
	}
	client.SetState(ClientStateProtocolChosen)
	return 0, true, nil
}

func (h *Handler) handleAuthLogin(ctx context.Context, client *GameClient, body []byte, out []byte) (int, bool, error) {
	var pkt clientpackets.AuthLogin
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing AuthLogin: %w", err)
	}

	key := registry.SessionKey{
		LoginOkID1: pkt.LoginOkID1,
		LoginOkID2: pkt.LoginOkID2,
		PlayOkID1:  pkt.PlayOkID1,
		PlayOkID2:  pkt.PlayOkID2,
	}

	ok, err := h.auth.PlayerAuthRequest(ctx, pkt.Account, key)
	if err != nil {
		slog.Error("PlayerAuthRequest failed", "account", pkt.Account, "error", err)
		n := serverpackets.AuthLoginFail(out, serverpackets.AuthLoginFailReasonSystemError)
		return n, true, nil
	}
	if !ok {
		slog.Warn("AuthLogin rejected by login server", "account", pkt.Account)
		n := serverpackets.AuthLoginFail(out, serverpackets.AuthLoginFailReasonAccessFailed)
		return n, true, nil
	}

	client.SetAccountName(pkt.Account)
	client.SetSessionKey(&key)
	client.SetState(ClientStateAuthenticated)
	h.clients.Register(pkt.Account, client)

	var chars []db.CharacterSummary
	if h.charRepo != nil {
		chars, err = h.charRepo.ListByAccount(ctx, pkt.Account)
		if err != nil {
			slog.Error("listing characters failed", "account", pkt.Account, "error", err)
		}
	}
	client.SetCharacters(chars)

	n := serverpackets.CharacterSelectionInfo(out, chars)
	return n, true, nil
}

func (h *Handler) handleSelectChar(client *GameClient, body []byte, _ []byte) (int, bool, error) {
	var pkt clientpackets.SelectChar
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing SelectChar: %w", err)
	}
	client.SetSelectedCharacter(pkt.Slot)
	client.SetState(ClientStateEntering)
	return 0, true, nil
}

func (h *Handler) handleEnterWorld(client *GameClient, body []byte, out []byte) (int, bool, error) {
	var pkt clientpackets.EnterWorld
	if err := pkt.Parse(body); err != nil {
		return 0, false, fmt.Errorf("parsing EnterWorld: %w", err)
	}

	slot := client.SelectedCharacter()
	var name string
	var objectID int32
	for _, c := range client.Characters() {
		if c.Slot == slot {
			name = c.Name
			objectID = slot + 1
			break
		}
	}

	client.SetState(ClientStateInGame)
	n := serverpackets.UserInfo(out, objectID, name)
	return n, true, nil
}
