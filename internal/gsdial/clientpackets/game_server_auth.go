package clientpackets

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/l2emu/core/internal/gslistener"
)

// HostPair is one subnet/ip override sent to the LS, alternating in the
// wire format as two consecutive UTF-16LE strings.
type HostPair struct {
	Subnet string
	IP     string
}

func writeUTF16String(buf []byte, pos int, s string) int {
	for _, r := range utf16.Encode([]rune(s)) {
		buf[pos] = byte(r)
		buf[pos+1] = byte(r >> 8)
		pos += 2
	}
	buf[pos] = 0
	buf[pos+1] = 0
	return pos + 2
}

// GameServerAuth writes the GS registration request into buf: desired id,
// whether an alternate id is acceptable, the reserveHost flag, client port,
// max online count, the hex identity token, and any subnet/ip overrides the
// LS should use to resolve which address to advertise to a connecting
// client.
func GameServerAuth(buf []byte, id byte, acceptAlternate, reserveHost bool, maxPlayers, port int, hexID []byte, hosts []HostPair) int {
	pos := 0
	buf[pos] = gslistener.OpcodeGSGameServerAuth
	pos++

	buf[pos] = id
	pos++

	if acceptAlternate {
		buf[pos] = 1
	} else {
		buf[pos] = 0
	}
	pos++

	if reserveHost {
		buf[pos] = 1
	} else {
		buf[pos] = 0
	}
	pos++

	binary.LittleEndian.PutUint16(buf[pos:], uint16(port))
	pos += 2

	binary.LittleEndian.PutUint32(buf[pos:], uint32(maxPlayers))
	pos += 4

	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(hexID)))
	pos += 4
	pos += copy(buf[pos:], hexID)

	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(hosts)))
	pos += 4
	for _, h := range hosts {
		pos = writeUTF16String(buf, pos, h.Subnet)
		pos = writeUTF16String(buf, pos, h.IP)
	}

	return pos
}
