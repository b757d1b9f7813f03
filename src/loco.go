package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Decode multi function (loco) decoder packets.
 *
 * Description:	RCN-212.  The address is either 7 bits in the first
 *		byte (0AAA-AAAA) or 14 bits in the first two bytes
 *		(11AA-AAAA AAAA-AAAA).  The instruction byte follows.
 *
 *		Speed commands are looked at before the address filter.
 *		Safety decoders want to know whether any train on the
 *		layout is still moving.
 *
 *		Command stations repeat everything.  Every command for
 *		one of our addresses is compared with what we already
 *		have and ignored when nothing changed.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
)

const NoAddress = 0xFFFF /* Matches nothing that can come off the rails. */

// LocoState is the last known loco command state.
type LocoState struct {
	Address     uint16 /* Of the last loco packet seen, ours or not. */
	LongAddress bool

	Speed         uint8 /* 0 is stop. */
	Forward       bool
	EmergencyStop bool

	F0F4   uint8 /* Bit 4 is F0 (FL), bit 0 is F1. */
	F5F8   uint8
	F9F12  uint8
	F13F20 uint8
	F21F28 uint8
	F29F68 uint64 /* Bit 0 is F29. */

	BinaryStateNumber uint16
	BinaryStateValue  bool
}

func (s *LocoState) F29F36() uint8 { return s.f29Byte(0) }
func (s *LocoState) F37F44() uint8 { return s.f29Byte(1) }
func (s *LocoState) F45F52() uint8 { return s.f29Byte(2) }
func (s *LocoState) F53F60() uint8 { return s.f29Byte(3) }
func (s *LocoState) F61F68() uint8 { return s.f29Byte(4) }

func (s *LocoState) f29Byte(i int) uint8 {
	return uint8(s.F29F68 >> (8 * i))
}

func (s *LocoState) setF29Byte(i int, v uint8) {
	var shift = 8 * i

	s.F29F68 = (s.F29F68 &^ (0xFF << shift)) | uint64(v)<<shift
}

// Function reports whether function n (0 .. 68) is on.
func (s *LocoState) Function(n int) bool {
	switch {
	case n == 0:
		return s.F0F4&0x10 != 0
	case n >= 1 && n <= 4:
		return s.F0F4&(1<<(n-1)) != 0
	case n >= 5 && n <= 8:
		return s.F5F8&(1<<(n-5)) != 0
	case n >= 9 && n <= 12:
		return s.F9F12&(1<<(n-9)) != 0
	case n >= 13 && n <= 20:
		return s.F13F20&(1<<(n-13)) != 0
	case n >= 21 && n <= 28:
		return s.F21F28&(1<<(n-21)) != 0
	case n >= 29 && n <= 68:
		return s.F29F68&(1<<(n-29)) != 0
	}

	return false
}

// resetSpeed brings the loco back to its power up state.
func (s *LocoState) resetSpeed() {
	s.Speed = 0
	s.Forward = true
	s.EmergencyStop = false
	s.F0F4 = 0
	s.F5F8 = 0
	s.F9F12 = 0
	s.F13F20 = 0
	s.F21F28 = 0
	s.F29F68 = 0
	s.BinaryStateNumber = 0
	s.BinaryStateValue = false
}

const allF29F68 = 0xFF_FFFF_FFFF /* 40 bits */

type locoDecoder struct {
	state *LocoState
	cv    *cvDecoder

	first uint16
	last  uint16
}

func newLocoDecoder(state *LocoState, cv *cvDecoder) *locoDecoder {
	return &locoDecoder{state: state, cv: cv, first: NoAddress, last: NoAddress}
}

func (l *locoDecoder) setAddress(first, last uint16) {
	l.first = first
	l.last = last
}

func (l *locoDecoder) isMine() bool {
	return l.state.Address >= l.first && l.state.Address <= l.last
}

/*------------------------------------------------------------------
 *
 * Name:	analyse
 *
 * Purpose:	Classify one good loco packet and update LocoState.
 *
 * Inputs:	p	- Packet with first byte 0x01 .. 0x7F or 0xC0 .. 0xE7.
 *
 * Returns:	Command type and, for CmdIgnore, the reason.
 *
 *------------------------------------------------------------------*/

func (l *locoDecoder) analyse(p *RawPacket) (CmdType, IgnoreReason) {
	var s = l.state
	var d = &p.Data
	var at = 1

	if d[0]&0x80 != 0 {
		s.LongAddress = true
		s.Address = uint16(d[0]&0x3F)<<8 | uint16(d[1])
		at = 2
	} else {
		s.LongAddress = false
		s.Address = uint16(d[0] & 0x7F)
	}

	var instr = d[at]
	var data = get(p, at+1)

	if cmd, ok := l.speedCommand(instr, data); ok {
		if cmd == CmdIgnore {
			return cmd, IgnoreRetransmission
		}

		return cmd, IgnoreNone
	}

	if !l.isMine() {
		return CmdIgnore, IgnoreNotForMe
	}

	switch {
	case instr&0xF0 == 0xE0:
		return l.cv.analysePoM(p)

	case instr == 0x00:
		s.resetSpeed()

		return CmdReset, IgnoreNone

	case instr&0xE0 == 0x80: /* 100D-DDDD */
		return update(&s.F0F4, instr&0x1F, CmdMyLocoF0F4)

	case instr&0xF0 == 0xB0: /* 1011-DDDD */
		return update(&s.F5F8, instr&0x0F, CmdMyLocoF5F8)

	case instr&0xF0 == 0xA0: /* 1010-DDDD */
		return update(&s.F9F12, instr&0x0F, CmdMyLocoF9F12)

	case instr == 0xDD || instr == 0xC0:
		return l.binaryState(p, instr, at)

	case instr&0xF8 == 0xD8: /* 1101-1XXX DDDD-DDDD */
		return l.functionGroup(instr&0x07, data)
	}

	return CmdIgnore, IgnoreUnsupported
}

// speedCommand handles 01RG-GGGG (28 steps) and 0011-1111 RGGG-GGGG (128 steps).
// ok is false if instr is not a speed instruction.
func (l *locoDecoder) speedCommand(instr, data byte) (cmd CmdType, ok bool) {
	var s = l.state
	var speed uint8
	var forward, estop bool

	switch {
	case instr&0xC0 == 0x40:
		forward = instr&0x20 != 0
		speed = (instr&0x0F)<<1 + (instr&0x10)>>4

		if speed <= 3 {
			estop = speed >= 2
			speed = 0
		} else {
			speed -= 3
		}

	case instr == 0x3F:
		forward = data&0x80 != 0
		speed = data & 0x7F

		if speed <= 1 {
			estop = speed == 1
			speed = 0
		} else {
			speed--
		}

	default:
		return CmdUnknown, false
	}

	if !l.isMine() {
		if speed > 0 {
			return CmdSomeLocoMovesFlag, true
		}

		return CmdSomeLocoSpeedFlag, true
	}

	if s.EmergencyStop == estop && s.Speed == speed && s.Forward == forward {
		return CmdIgnore, true
	}

	if estop {
		s.Speed = 0
		s.EmergencyStop = true

		return CmdMyEmergencyStop, true
	}

	s.Speed = speed
	s.EmergencyStop = false
	s.Forward = forward

	return CmdMyLocoSpeed, true
}

var f29Groups = [5]CmdType{CmdMyLocoF29F36, CmdMyLocoF37F44, CmdMyLocoF45F52, CmdMyLocoF53F60, CmdMyLocoF61F68}

func (l *locoDecoder) functionGroup(group byte, data byte) (CmdType, IgnoreReason) {
	var s = l.state

	switch group {
	case 6:
		return update(&s.F13F20, data, CmdMyLocoF13F20)
	case 7:
		return update(&s.F21F28, data, CmdMyLocoF21F28)
	case 0, 1, 2, 3, 4:
		var i = int(group)
		if s.f29Byte(i) == data {
			return CmdIgnore, IgnoreRetransmission
		}

		s.setF29Byte(i, data)

		return f29Groups[i], IgnoreNone
	}

	return CmdIgnore, IgnoreUnsupported
}

/*------------------------------------------------------------------
 *
 * Name:	binaryState
 *
 * Purpose:	Binary state control, RCN-212 sections 2.3.5 and 2.3.6.
 *
 * Description:	Short form	1101-1101 DLLL-LLLL
 *		Long form	1100-0000 DLLL-LLLL HHHH-HHHH
 *
 *		The state number is L plus 128 times H.
 *
 *			0		all of F29 .. F68
 *			1 .. 15		RailCom (RCN-217), not ours
 *			16 .. 28	reserved
 *			29 .. 68	F29 .. F68
 *			above		up to the application
 *
 *------------------------------------------------------------------*/

func (l *locoDecoder) binaryState(p *RawPacket, instr byte, at int) (CmdType, IgnoreReason) {
	var s = l.state
	var low = get(p, at+1)
	var number = uint16(low & 0x7F)
	var value = low&0x80 != 0

	if instr == 0xC0 {
		number += uint16(get(p, at+2)) << 7
	}

	if s.BinaryStateNumber == number && s.BinaryStateValue == value {
		return CmdIgnore, IgnoreRetransmission
	}

	s.BinaryStateNumber = number
	s.BinaryStateValue = value

	switch {
	case number == 0:
		if value {
			s.F29F68 = allF29F68
		} else {
			s.F29F68 = 0
		}

		return CmdMyBinaryStateReset, IgnoreNone

	case number <= 28:
		return CmdIgnore, IgnoreUnsupported

	case number <= 68:
		var bit = uint64(1) << (number - 29)
		if value {
			s.F29F68 |= bit
		} else {
			s.F29F68 &^= bit
		}

		return f29Groups[(number-29)/8], IgnoreNone
	}

	return CmdMyBinaryState, IgnoreNone
}

// update stores v in *field unless it is already there.
func update(field *uint8, v uint8, cmd CmdType) (CmdType, IgnoreReason) {
	if *field == v {
		return CmdIgnore, IgnoreRetransmission
	}

	*field = v

	return cmd, IgnoreNone
}

// get returns byte i of the packet, or 0 past its end.
func get(p *RawPacket, i int) byte {
	if i >= p.Size {
		return 0
	}

	return p.Data[i]
}

func (s *LocoState) String() string {
	var dir = "reverse"
	if s.Forward {
		dir = "forward"
	}

	return fmt.Sprintf("loco %d speed %d %s estop=%t F0-F4=%05b F5-F8=%04b F9-F12=%04b F13-F20=%08b F21-F28=%08b F29-F68=%010x",
		s.Address, s.Speed, dir, s.EmergencyStop, s.F0F4, s.F5F8, s.F9F12, s.F13F20, s.F21F28, s.F29F68)
}
