package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Decode accessory decoder packets.
 *
 * Description:	RCN-213.  Basic accessory packet:
 *
 *			10AA-AAAA 1AAA-DAAR
 *
 *		The first byte carries the low 6 address bits, the
 *		second the high 3, inverted.  A basic decoder has 4
 *		turnouts (the AA bits of byte 2), each with 2 positions
 *		(R).  D activates the output.
 *
 *		Extended accessory packet, for signals:
 *
 *			10AA-AAAA 0AAA-0AA1 DDDD-DDDD
 *
 *		How the 9 bit wire address maps to what the user sees
 *		differs between command stations, see Master.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"strings"
)

type Master int

const (
	MasterRoco    Master = iota /* Decoder address 0 is not used by the handheld. */
	MasterLenz                  /* LZV100 and friends. */
	MasterOpenDCC               /* Also what the NMRA specifies. */
)

var ErrUnknownMaster = errors.New("unknown command station type")

func (m Master) String() string {
	switch m {
	case MasterRoco:
		return "roco"
	case MasterLenz:
		return "lenz"
	case MasterOpenDCC:
		return "opendcc"
	}

	return "invalid"
}

func ParseMaster(s string) (Master, error) {
	switch strings.ToLower(s) {
	case "roco":
		return MasterRoco, nil
	case "lenz", "":
		return MasterLenz, nil
	case "opendcc", "nmra":
		return MasterOpenDCC, nil
	}

	return MasterLenz, fmt.Errorf("%w: %q", ErrUnknownMaster, s)
}

type AccessoryCommand int

const (
	AccessoryBasic AccessoryCommand = iota
	AccessoryExtended
)

func (c AccessoryCommand) String() string {
	if c == AccessoryBasic {
		return "basic"
	}

	return "extended"
}

func (c AccessoryCommand) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// AccessoryState is the last decoded accessory command.
type AccessoryState struct {
	Command        AccessoryCommand
	DecoderAddress uint16
	OutputAddress  uint16 /* DecoderAddress * 4 + Turnout */
	Turnout        uint8  /* 1 .. 4 */
	Position       uint8  /* 0 .. 1 */
	Device         uint8  /* 1 .. 8, turnout and position together */
	Activate       uint8
	SignalHead     uint8 /* Extended commands only. */
}

func (a *AccessoryState) String() string {
	if a.Command == AccessoryExtended {
		return fmt.Sprintf("accessory %d (output %d) aspect %d", a.DecoderAddress, a.OutputAddress, a.SignalHead)
	}

	return fmt.Sprintf("accessory %d (output %d) turnout %d position %d activate %d",
		a.DecoderAddress, a.OutputAddress, a.Turnout, a.Position, a.Activate)
}

const accessoryBroadcast = 0x1FF /* All 9 wire address bits set. */

type accessoryDecoder struct {
	state *AccessoryState
	cv    *cvDecoder

	master           Master
	outputAddressing bool /* CV29 bit 6 */

	first uint16
	last  uint16

	recent repeatFilter
}

func newAccessoryDecoder(state *AccessoryState, cv *cvDecoder) *accessoryDecoder {
	return &accessoryDecoder{state: state, cv: cv, master: MasterLenz, first: NoAddress, last: NoAddress} //nolint:exhaustruct
}

func (a *accessoryDecoder) setAddress(first, last uint16) {
	a.first = first
	a.last = last
}

func (a *accessoryDecoder) isMine(raw uint16) bool {
	if raw == accessoryBroadcast {
		return true
	}

	var addr = a.state.DecoderAddress
	if a.outputAddressing {
		addr = a.state.OutputAddress
	}

	return addr >= a.first && addr <= a.last
}

func (a *accessoryDecoder) decoderAddress(msb, lsb uint16) uint16 {
	switch a.master {
	case MasterLenz:
		if lsb == 0 {
			msb += 64
		}

		return msb + lsb - 1
	case MasterRoco:
		return msb + lsb
	case MasterOpenDCC:
	}

	if msb+lsb == 0 {
		return 511
	}

	return msb + lsb - 1
}

/*------------------------------------------------------------------
 *
 * Name:	analyse
 *
 * Purpose:	Classify one good accessory packet, first byte 0x80 .. 0xBF.
 *
 * Description:	Packets for other decoders are reported once per
 *		address and device, for decoders that want to watch
 *		the rest of the layout.
 *
 *------------------------------------------------------------------*/

func (a *accessoryDecoder) analyse(p *RawPacket) (CmdType, IgnoreReason) {
	var s = a.state
	var b1 = p.Data[1]
	var b2 = p.Data[2]

	var msb = uint16(^b1&0x70) << 2
	var lsb = uint16(p.Data[0] & 0x3F)

	s.DecoderAddress = a.decoderAddress(msb, lsb)
	s.Turnout = (b1&0x06)>>1 + 1
	s.Position = b1 & 0x01
	s.Device = b1&0x07 + 1
	s.Activate = (b1 & 0x08) >> 3
	s.OutputAddress = s.DecoderAddress*4 + uint16(s.Turnout)

	var hi, lo = byte(s.DecoderAddress >> 8), byte(s.DecoderAddress)

	if !a.isMine(msb | lsb) {
		if a.recent.Repeat([]byte{'F', hi, lo, s.Device}) {
			return CmdIgnore, IgnoreRetransmission
		}

		return CmdAnyAccessory, IgnoreNone
	}

	if b1&0x80 != 0 {
		s.Command = AccessoryBasic
	} else {
		s.Command = AccessoryExtended
	}

	switch p.Size {
	case 3:
		if a.recent.Repeat([]byte{'B', hi, lo, b1}) {
			return CmdIgnore, IgnoreRetransmission
		}

		if s.Command == AccessoryBasic {
			return CmdMyAccessory, IgnoreNone
		}

		return CmdIgnore, IgnoreUnsupported /* NOP, RCN-213 section 2.5 */

	case 4:
		if a.recent.Repeat([]byte{'E', hi, lo, b1, b2}) {
			return CmdIgnore, IgnoreRetransmission
		}

		s.SignalHead = b2

		return CmdMyAccessory, IgnoreNone

	case 6:
		if b2&0xF0 == 0xE0 {
			return a.cv.analysePoM(p)
		}
	}

	return CmdIgnore, IgnoreUnsupported
}

func (a *accessoryDecoder) reset() {
	a.recent.Clear()
}
