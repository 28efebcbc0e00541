package gsdial

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/l2emu/core/internal/gslistener"
	"github.com/l2emu/core/internal/gsdial/clientpackets"
	"github.com/l2emu/core/internal/gsdial/serverpackets"
)

// handle dispatches one decoded LS→GS packet received during the
// steady-state loop (after the handshake has completed).
func (c *Client) handle(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty packet from login server")
	}
	opcode := data[0]
	body := data[1:]

	switch opcode {
	case gslistener.OpcodeLSPlayerAuthResponse:
		var pkt serverpackets.PlayerAuthResponse
		if err := pkt.Parse(body); err != nil {
			return fmt.Errorf("parsing PlayerAuthResponse: %w", err)
		}
		c.authBroker.Respond(lsPeerID, pkt.Account, pkt)
		return nil

	case gslistener.OpcodeLSKickPlayer:
		var pkt serverpackets.KickPlayer
		if err := pkt.Parse(body); err != nil {
			return fmt.Errorf("parsing KickPlayer: %w", err)
		}
		if c.onKick != nil {
			c.onKick(pkt.Account)
		}
		slog.Info("kicked by login server", "account", pkt.Account)
		return nil

	case gslistener.OpcodeLSRequestCharacters:
		var pkt serverpackets.RequestCharacters
		if err := pkt.Parse(body); err != nil {
			return fmt.Errorf("parsing RequestCharacters: %w", err)
		}
		return c.replyCharacters(ctx, pkt.Account)

	default:
		slog.Warn("unknown opcode from login server", "opcode", fmt.Sprintf("0x%02x", opcode))
		return nil
	}
}

func (c *Client) replyCharacters(ctx context.Context, account string) error {
	var total int
	var schedule []int64
	if c.chars != nil {
		var err error
		total, schedule, err = c.chars.CharacterCensus(ctx, account)
		if err != nil {
			slog.Error("character census failed", "account", account, "err", err)
		}
	}

	buf := make([]byte, replyCharactersBufSize(len(schedule)))
	n := clientpackets.ReplyCharacters(buf, total, schedule)
	return c.Send(buf[:n])
}

// replyCharactersBufSize sizes the ReplyCharacters buffer: opcode + two
// uint32 counts + 8 bytes per scheduled deletion.
func replyCharactersBufSize(deletions int) int {
	return 1 + 4 + 4 + deletions*8
}
