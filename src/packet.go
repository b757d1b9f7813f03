package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Raw DCC packet as seen on the rails.
 *
 * Description:	A packet is 3 to 6 bytes.  The last byte is the
 *		error detection byte: the XOR of all previous bytes.
 *		XOR over the whole packet, including the error
 *		detection byte, is therefore zero for a good packet.
 *
 *		The wire bit format itself is handled by the assembler.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const MaxPacketSize = 6 /* NMRA S-9.2 allows up to 6 bytes, including the error byte. */

const MinPacketSize = 3

// RawPacket holds the bytes of one received packet.  Bytes beyond Size are zero.
type RawPacket struct {
	Data [MaxPacketSize]byte
	Size int
}

// NewRawPacket copies b into a packet.  Anything beyond MaxPacketSize is dropped.
func NewRawPacket(b ...byte) RawPacket {
	var p RawPacket

	p.Size = copy(p.Data[:], b)

	return p
}

// Bytes returns the valid part of the packet.
func (p *RawPacket) Bytes() []byte {
	return p.Data[:p.Size]
}

// Checksum is the XOR of every byte, error byte included.  Zero means good.
func (p *RawPacket) Checksum() byte {
	var x byte

	for _, b := range p.Bytes() {
		x ^= b
	}

	return x
}

func (p *RawPacket) Valid() bool {
	return p.Size >= MinPacketSize && p.Size <= MaxPacketSize && p.Checksum() == 0
}

func (p RawPacket) String() string {
	var parts = make([]string, p.Size)
	for i, b := range p.Bytes() {
		parts[i] = fmt.Sprintf("%02x", b)
	}

	return strings.Join(parts, " ")
}

/*------------------------------------------------------------------
 *
 * Name:	ParseHexPacket
 *
 * Purpose:	Convert text like "03 64 67" or "036467" to a packet.
 *
 * Inputs:	line		- Hexadecimal bytes, optionally separated by
 *				  spaces, commas or colons.
 *
 *		addChecksum	- Append the error detection byte.
 *
 * Returns:	Packet, or error if the text is not hexadecimal or the
 *		resulting size is out of range.
 *
 *------------------------------------------------------------------*/

func ParseHexPacket(line string, addChecksum bool) (RawPacket, error) {
	var cleaned = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ',', ':':
			return -1
		}

		return r
	}, line)

	var b, err = hex.DecodeString(cleaned)
	if err != nil {
		return RawPacket{}, fmt.Errorf("parse packet %q: %w", line, err)
	}

	if addChecksum {
		var x byte
		for _, v := range b {
			x ^= v
		}

		b = append(b, x)
	}

	if len(b) < MinPacketSize || len(b) > MaxPacketSize {
		return RawPacket{}, fmt.Errorf("parse packet %q: %d bytes, want %d to %d", line, len(b), MinPacketSize, MaxPacketSize)
	}

	return NewRawPacket(b...), nil
}
