package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// ReplyCharacters [0x0A] — GS → LS reply to RequestChars.
//
// Format (no opcode, no account — replies are matched to the originating
// RequestChars in FIFO order per connection, see GSConnection's pending
// queue):
//
//	[totalChars uint32]
//	[charsToDelete uint32]
//	for each charsToDelete:
//	  [secondsUntilDeletion int64]
type ReplyCharacters struct {
	TotalChars      int
	DeletionSchedule []int64 // seconds until deletion, one per character pending deletion
}

// Parse parses a ReplyCharacters packet from body (opcode already stripped).
func (p *ReplyCharacters) Parse(body []byte) error {
	r := packet.NewReader(body)

	total, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading totalChars: %w", err)
	}
	p.TotalChars = int(total)

	toDelete, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading charsToDelete: %w", err)
	}
	if toDelete < 0 || toDelete > 1<<16 {
		return fmt.Errorf("invalid charsToDelete: %d", toDelete)
	}

	p.DeletionSchedule = make([]int64, 0, toDelete)
	for range toDelete {
		seconds, err := r.ReadLong()
		if err != nil {
			return fmt.Errorf("reading secondsUntilDeletion: %w", err)
		}
		p.DeletionSchedule = append(p.DeletionSchedule, seconds)
	}

	return nil
}
