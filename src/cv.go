package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Configuration variable access.
 *
 * Description:	Two ways to read or change a CV:
 *
 *		Service mode (RCN-216), on a programming track.  A
 *		reset packet opens a time window in which packets
 *		0111-CCAA AAAA-AAAA DDDD-DDDD (direct mode) are
 *		accepted.  Every SM, reset or idle packet extends the
 *		window.  The decoder replies by pulling current, see
 *		Decoder.SendAck.
 *
 *		Operations mode or "programming on the main" (RCN-214),
 *		the long form 1110-CCAA AAAA-AAAA DDDD-DDDD after a
 *		loco or accessory address.
 *
 *		In both cases the command is only executed when the
 *		same packet arrives twice in a row.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"time"
)

type CvOperation int

const (
	CvReserved CvOperation = iota
	CvVerifyByte
	CvBitManipulation
	CvWriteByte
)

func (o CvOperation) String() string {
	switch o {
	case CvReserved:
		return "reserved"
	case CvVerifyByte:
		return "verify-byte"
	case CvBitManipulation:
		return "bit-manipulation"
	case CvWriteByte:
		return "write-byte"
	}

	return "invalid"
}

// CvAccess is the last confirmed CV access command.
type CvAccess struct {
	Operation CvOperation
	Number    uint16 /* 1 .. 1024 */
	Value     uint8

	// Only for CvBitManipulation.
	WriteCmd    bool /* Else verify. */
	BitValue    uint8
	BitPosition uint8 /* 0 .. 7 */
}

// WriteBit returns data with BitPosition set to BitValue.
func (c *CvAccess) WriteBit(data uint8) uint8 {
	if c.BitValue != 0 {
		return data | 1<<c.BitPosition
	}

	return data &^ (1 << c.BitPosition)
}

// VerifyBit reports whether BitPosition of data equals BitValue.
func (c *CvAccess) VerifyBit(data uint8) bool {
	return (data>>c.BitPosition)&1 == c.BitValue
}

func (c *CvAccess) String() string {
	if c.Operation == CvBitManipulation {
		var op = "verify"
		if c.WriteCmd {
			op = "write"
		}

		return fmt.Sprintf("CV%d %s bit %d = %d", c.Number, op, c.BitPosition, c.BitValue)
	}

	return fmt.Sprintf("CV%d %s %d", c.Number, c.Operation, c.Value)
}

// DefaultSmTimeout is the RCN-216 limit of 20 ms plus some margin.
const DefaultSmTimeout = 40 * time.Millisecond

type cvDecoder struct {
	cmd     *CvAccess
	clock   Clock
	timeout time.Duration

	inServiceMode bool
	smTime        time.Time

	backup repeatFilter /* Shared by service mode and PoM. */
}

func newCvDecoder(cmd *CvAccess, clock Clock) *cvDecoder {
	return &cvDecoder{cmd: cmd, clock: clock, timeout: DefaultSmTimeout} //nolint:exhaustruct
}

// openServiceMode starts (or restarts) the window after a reset packet.
func (c *cvDecoder) openServiceMode() {
	c.inServiceMode = true
	c.smTime = c.clock.Now()
}

func (c *cvDecoder) closeServiceMode() {
	c.inServiceMode = false
	c.backup.Clear()
}

func (c *cvDecoder) reset() {
	c.closeServiceMode()
	*c.cmd = CvAccess{} //nolint:exhaustruct
}

/*------------------------------------------------------------------
 *
 * Name:	analyseSM
 *
 * Purpose:	Classify a packet while the service mode window is open.
 *
 * Returns:	CmdUnknown if the window timed out.  The window is then
 *		closed and the caller should treat it as a normal packet.
 *
 *------------------------------------------------------------------*/

func (c *cvDecoder) analyseSM(p *RawPacket) (CmdType, IgnoreReason) {
	var now = c.clock.Now()

	if now.Sub(c.smTime) >= c.timeout {
		c.closeServiceMode()

		return CmdUnknown, IgnoreNone
	}

	var b0, b1 = p.Data[0], p.Data[1]

	switch {
	case b0 == 0x00 && b1 == 0x00: /* reset */
		c.smTime = now

		return CmdIgnore, IgnoreServiceMode

	case b0 == 0xFF: /* idle */
		c.smTime = now

		return CmdIgnore, IgnoreIdle

	case b0&0xF0 == 0x70:
		c.smTime = now

		if p.Size == 4 {
			if !c.backup.Confirm(p.Bytes()) {
				return CmdIgnore, IgnoreUnconfirmed
			}

			c.decode(p.Data[0], p.Data[1], p.Data[2])

			return CmdSm, IgnoreNone
		}

		return CmdIgnore, IgnoreUnsupported
	}

	return CmdIgnore, IgnoreServiceMode
}

// analysePoM handles the long form CV access after a loco or accessory address.
func (c *cvDecoder) analysePoM(p *RawPacket) (CmdType, IgnoreReason) {
	var offset = 1
	if p.Size == 6 {
		offset = 2
	}

	if offset+4 != p.Size {
		return CmdIgnore, IgnoreUnsupported
	}

	if !c.backup.Confirm(p.Bytes()) {
		return CmdIgnore, IgnoreUnconfirmed
	}

	c.decode(p.Data[offset], p.Data[offset+1], p.Data[offset+2])

	return CmdMyPom, IgnoreNone
}

func (c *cvDecoder) decode(instr, number, value byte) {
	var cmd = c.cmd

	cmd.Operation = CvOperation((instr & 0x0C) >> 2)
	cmd.Number = uint16(instr&0x03)<<8 + uint16(number) + 1
	cmd.Value = value

	if cmd.Operation == CvBitManipulation {
		cmd.WriteCmd = value&0x10 != 0
		cmd.BitValue = (value & 0x08) >> 3
		cmd.BitPosition = value & 0x07
	}
}

func (o CvOperation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
