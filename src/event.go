package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Describe a classified packet for people and programs.
 *
 * Description:	Text for the terminal, one line per command, and a
 *		JSON object for network clients.  Only what belongs to
 *		the command type is filled in.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

type Event struct {
	Time   time.Time       `json:"time"`
	Type   string          `json:"type"`
	Reason string          `json:"reason,omitempty"`
	Packet string          `json:"packet"`
	Loco   *LocoState      `json:"loco,omitempty"`
	Acc    *AccessoryState `json:"accessory,omitempty"`
	CV     *CvAccess       `json:"cv,omitempty"`
}

// NewEvent takes a snapshot of what d just decoded.
func NewEvent(d *Decoder, t time.Time) Event {
	var e = Event{Time: t, Type: d.CmdType.String(), Packet: d.Packet.String()} //nolint:exhaustruct

	if d.CmdType == CmdIgnore {
		e.Reason = d.Ignored.String()
	}

	switch {
	case d.CmdType.IsLoco(), d.CmdType == CmdReset:
		var loco = d.Loco
		e.Loco = &loco
	case d.CmdType == CmdMyAccessory, d.CmdType == CmdAnyAccessory:
		var acc = d.Accessory
		e.Acc = &acc
	case d.CmdType == CmdMyPom, d.CmdType == CmdSm:
		var cv = d.CV
		e.CV = &cv
	}

	return e
}

func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Describe is the command in words, without time stamp.
func Describe(d *Decoder) string {
	var l = &d.Loco

	switch d.CmdType {
	case CmdIgnore:
		return fmt.Sprintf("ignored (%s)", d.Ignored)
	case CmdReset:
		return "reset"
	case CmdSomeLocoSpeedFlag:
		return fmt.Sprintf("loco %d stopped", l.Address)
	case CmdSomeLocoMovesFlag:
		return fmt.Sprintf("loco %d moving", l.Address)
	case CmdMyLocoSpeed:
		var dir = "reverse"
		if l.Forward {
			dir = "forward"
		}

		return fmt.Sprintf("loco %d speed %d %s", l.Address, l.Speed, dir)
	case CmdMyEmergencyStop:
		return fmt.Sprintf("loco %d emergency stop", l.Address)
	case CmdMyLocoF0F4:
		return fmt.Sprintf("loco %d F0-F4 %05b", l.Address, l.F0F4)
	case CmdMyLocoF5F8:
		return fmt.Sprintf("loco %d F5-F8 %04b", l.Address, l.F5F8)
	case CmdMyLocoF9F12:
		return fmt.Sprintf("loco %d F9-F12 %04b", l.Address, l.F9F12)
	case CmdMyLocoF13F20:
		return fmt.Sprintf("loco %d F13-F20 %08b", l.Address, l.F13F20)
	case CmdMyLocoF21F28:
		return fmt.Sprintf("loco %d F21-F28 %08b", l.Address, l.F21F28)
	case CmdMyLocoF29F36, CmdMyLocoF37F44, CmdMyLocoF45F52, CmdMyLocoF53F60, CmdMyLocoF61F68:
		var i = int(d.CmdType - CmdMyLocoF29F36)

		return fmt.Sprintf("loco %d F%d-F%d %08b", l.Address, 29+8*i, 36+8*i, l.f29Byte(i))
	case CmdMyBinaryState, CmdMyBinaryStateReset:
		return fmt.Sprintf("loco %d binary state %d = %t", l.Address, l.BinaryStateNumber, l.BinaryStateValue)
	case CmdAnyAccessory:
		return "other " + d.Accessory.String()
	case CmdMyAccessory:
		return d.Accessory.String()
	case CmdMyPom:
		return "PoM " + d.CV.String()
	case CmdSm:
		return "service mode " + d.CV.String()
	case CmdUnknown:
	}

	return d.CmdType.String()
}

/*------------------------------------------------------------------
 *
 * Name:	EventFormatter
 *
 * Purpose:	Text lines for the monitor output.
 *
 * Inputs:	TimestampFormat	- strftime pattern, e.g. "%H:%M:%S",
 *				  or empty for no time stamp.
 *
 *		ShowPacket	- Append the raw bytes.
 *
 *------------------------------------------------------------------*/

type EventFormatter struct {
	ShowPacket bool

	stamp *strftime.Strftime
}

func NewEventFormatter(timestampFormat string, showPacket bool) (*EventFormatter, error) {
	var f = &EventFormatter{ShowPacket: showPacket} //nolint:exhaustruct

	if timestampFormat != "" {
		var s, err = strftime.New(timestampFormat)
		if err != nil {
			return nil, fmt.Errorf("timestamp format %q: %w", timestampFormat, err)
		}

		f.stamp = s
	}

	return f, nil
}

func (f *EventFormatter) Format(d *Decoder, t time.Time) string {
	var b strings.Builder

	if f.stamp != nil {
		b.WriteString(f.stamp.FormatString(t))
		b.WriteByte(' ')
	}

	fmt.Fprintf(&b, "%-22s %s", d.CmdType, Describe(d))

	if f.ShowPacket {
		fmt.Fprintf(&b, "  [%s]", d.Packet)
	}

	return b.String()
}
