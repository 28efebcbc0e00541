package clientpackets

import (
	"fmt"

	"github.com/l2emu/core/internal/gslistener/packet"
)

// RequestTempBan [0x0B] — GS → LS temporary ban request: ban account and IP
// for a bounded duration.
//
// Format (no opcode):
//
//	[account UTF-16LE null-terminated]
//	[ip UTF-16LE null-terminated]
//	[durationSeconds int32]
type RequestTempBan struct {
	Account         string
	IP              string
	DurationSeconds int32
}

// Parse parses a RequestTempBan packet from body (opcode already stripped).
func (p *RequestTempBan) Parse(body []byte) error {
	r := packet.NewReader(body)

	account, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading account: %w", err)
	}
	p.Account = account

	ip, err := r.ReadString()
	if err != nil {
		return fmt.Errorf("reading ip: %w", err)
	}
	p.IP = ip

	duration, err := r.ReadInt()
	if err != nil {
		return fmt.Errorf("reading durationSeconds: %w", err)
	}
	p.DurationSeconds = duration

	return nil
}
