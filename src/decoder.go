package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Check and classify received DCC packets.
 *
 * Description:	The capture side (driver, assembler) runs from the
 *		edge source and leaves at most one packet in the slot.
 *		The application calls Input regularly.  Each call takes
 *		the waiting packet, if there is one, checks it and works
 *		out what it means for us.  The result is in CmdType
 *		and, depending on the type, in Loco, Accessory or CV.
 *
 *		Input never blocks.  Use Ready to wait for a packet.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrAlreadyAttached = errors.New("decoder already attached")
	ErrNotAttached     = errors.New("decoder not attached")
)

// Clock gives the current time for the service mode window.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// DefaultAckDuration is a little more than the 6 ms RCN-216 asks for.
const DefaultAckDuration = 6 * time.Millisecond

type Decoder struct {
	CmdType CmdType
	Ignored IgnoreReason /* Only for CmdIgnore. */
	Packet  RawPacket    /* The packet CmdType is about. */

	Loco      LocoState
	Accessory AccessoryState
	CV        CvAccess

	errorXOR uint64

	slot *PacketSlot
	asm  *Assembler

	loco *locoDecoder
	acc  *accessoryDecoder
	cv   *cvDecoder

	ack         AckLine
	ackDuration time.Duration

	mu        sync.Mutex /* Attach and Detach. */
	frontend  *Frontend
	edgeSrc   EdgeSource
	packetSrc PacketSource
}

// NewDecoder returns a decoder that listens to no address yet.  clock may be
// nil for the system clock.
func NewDecoder(clock Clock) *Decoder {
	if clock == nil {
		clock = systemClock{}
	}

	var d = new(Decoder)

	d.slot = NewPacketSlot()
	d.asm = NewAssembler(d.slot)
	d.cv = newCvDecoder(&d.CV, clock)
	d.loco = newLocoDecoder(&d.Loco, d.cv)
	d.acc = newAccessoryDecoder(&d.Accessory, d.cv)
	d.ackDuration = DefaultAckDuration

	d.resetState()

	return d
}

func (d *Decoder) resetState() {
	d.CmdType = CmdUnknown
	d.Ignored = IgnoreNone
	d.Packet = RawPacket{}
	d.errorXOR = 0

	d.Loco = LocoState{Address: NoAddress} //nolint:exhaustruct
	d.Loco.resetSpeed()
	d.Accessory = AccessoryState{DecoderAddress: NoAddress} //nolint:exhaustruct
	d.cv.reset()
	d.acc.reset()
	d.slot.Reset()
	d.asm.Reset()
}

/*------------------------------------------------------------------
 *
 * Configuration.  Addresses are inclusive ranges.  Until set,
 * nothing is ours.
 *
 *------------------------------------------------------------------*/

func (d *Decoder) SetLocoAddress(addr uint16) { d.loco.setAddress(addr, addr) }

func (d *Decoder) SetLocoAddressRange(first, last uint16) { d.loco.setAddress(first, last) }

func (d *Decoder) SetAccessoryAddress(addr uint16) { d.acc.setAddress(addr, addr) }

func (d *Decoder) SetAccessoryAddressRange(first, last uint16) { d.acc.setAddress(first, last) }

func (d *Decoder) SetMaster(m Master) { d.acc.master = m }

func (d *Decoder) Master() Master { return d.acc.master }

// SetOutputAddressing makes the accessory range refer to output addresses
// instead of decoder addresses (CV29 bit 6).
func (d *Decoder) SetOutputAddressing(on bool) { d.acc.outputAddressing = on }

func (d *Decoder) SetSmTimeout(t time.Duration) { d.cv.timeout = t }

// SetAckLine sets the output used by SendAck.  nil disables acknowledgement.
func (d *Decoder) SetAckLine(line AckLine) { d.ack = line }

func (d *Decoder) SetAckDuration(t time.Duration) { d.ackDuration = t }

func (d *Decoder) InServiceMode() bool { return d.cv.inServiceMode }

// Slot is where the assembler leaves packets, for sources that publish directly.
func (d *Decoder) Slot() *PacketSlot { return d.slot }

// Ready is signalled when a packet may be waiting for Input.
func (d *Decoder) Ready() <-chan struct{} { return d.slot.Notify() }

type Stats struct {
	ErrorXOR    uint64 /* Packets with a bad error detection byte. */
	Overwritten uint64 /* Packets replaced before Input took them. */
	Oversize    uint64 /* Packets with more than 6 bytes. */
	Edges       uint64
}

func (d *Decoder) Stats() Stats {
	var s = Stats{ //nolint:exhaustruct
		ErrorXOR:    d.errorXOR,
		Overwritten: d.slot.Overwritten(),
		Oversize:    d.asm.Oversize(),
	}

	d.mu.Lock()
	if d.frontend != nil {
		s.Edges = d.frontend.Edges()
	}
	d.mu.Unlock()

	return s
}

// Input takes the waiting packet, if any, and classifies it.  It returns
// false when there was nothing to take.
func (d *Decoder) Input() bool {
	var p RawPacket
	if !d.slot.Take(&p) {
		return false
	}

	d.Process(p)

	return true
}

// Process classifies p as if it had just been received.
func (d *Decoder) Process(p RawPacket) CmdType {
	d.Packet = p
	d.CmdType, d.Ignored = d.classify(&d.Packet)

	return d.CmdType
}

/*------------------------------------------------------------------
 *
 * Name:	classify
 *
 * Purpose:	Checksum, service mode, then dispatch on the first byte.
 *
 * Description:	First byte, RCN-211 section 3:
 *
 *			0x00		broadcast
 *			0x01 .. 0x7F	loco, 7 bit address
 *			0x80 .. 0xBF	accessory
 *			0xC0 .. 0xE7	loco, 14 bit address
 *			0xE8 .. 0xFE	reserved
 *			0xFF		idle
 *
 *		While the service mode window is open, packets that
 *		could be loco packets (0111-xxxx) are service mode
 *		commands instead.
 *
 *------------------------------------------------------------------*/

func (d *Decoder) classify(p *RawPacket) (CmdType, IgnoreReason) {
	if p.Size < MinPacketSize {
		return CmdIgnore, IgnoreShort
	}

	if p.Checksum() != 0 {
		d.errorXOR++
		logger.Debug("checksum error", "packet", p, "errors", d.errorXOR)

		return CmdIgnore, IgnoreChecksum
	}

	if d.cv.inServiceMode {
		var cmd, why = d.cv.analyseSM(p)
		if cmd != CmdUnknown {
			return cmd, why
		}

		logger.Debug("service mode window closed")
	}

	var b0 = p.Data[0]

	switch {
	case b0 == 0x00:
		return d.broadcast(p)
	case b0 <= 0x7F:
		return d.loco.analyse(p)
	case b0 <= 0xBF:
		return d.acc.analyse(p)
	case b0 <= 0xE7:
		return d.loco.analyse(p)
	case b0 <= 0xFE:
		return CmdIgnore, IgnoreReserved
	}

	return CmdIgnore, IgnoreIdle
}

/*------------------------------------------------------------------
 *
 * Name:	broadcast
 *
 * Purpose:	Packets for all decoders.
 *
 * Description:	0000-0000 0000-0000	reset, RCN-211 section 4.1.
 *					Also opens the service mode window.
 *		0000-0000 01DC-0000	stop all locos
 *		0000-0000 01DC-0001	emergency stop all locos
 *
 *		D is the direction and C the extra speed bit; both are
 *		don't care here.
 *
 *------------------------------------------------------------------*/

func (d *Decoder) broadcast(p *RawPacket) (CmdType, IgnoreReason) {
	var b1 = p.Data[1]
	var s = &d.Loco

	switch {
	case b1 == 0x00:
		s.resetSpeed()
		d.cv.openServiceMode()
		logger.Debug("reset, service mode window open")

		return CmdReset, IgnoreNone

	case b1&0xCF == 0x41:
		if s.Speed == 0 && s.EmergencyStop {
			return CmdIgnore, IgnoreRetransmission
		}

		s.Speed = 0
		s.EmergencyStop = true

		return CmdMyEmergencyStop, IgnoreNone

	case b1&0xCF == 0x40:
		if s.Speed == 0 && !s.EmergencyStop {
			return CmdIgnore, IgnoreRetransmission
		}

		s.Speed = 0
		s.EmergencyStop = false

		return CmdMyLocoSpeed, IgnoreNone
	}

	return CmdIgnore, IgnoreUnsupported
}

/*------------------------------------------------------------------
 *
 * Name:	Attach
 *
 * Purpose:	Start receiving from an edge source.
 *
 * Inputs:	src	- GPIO, sound card, recording, ...
 *
 *		driver	- One of DriverNames.
 *
 * Description:	All decoder state is reset first.  Configuration
 *		(addresses, master, ack line) is kept.
 *
 *------------------------------------------------------------------*/

func (d *Decoder) Attach(src EdgeSource, driver string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.edgeSrc != nil || d.packetSrc != nil {
		return ErrAlreadyAttached
	}

	var fe, err = NewFrontend(driver, d.asm)
	if err != nil {
		return err
	}

	d.resetState()
	d.frontend = fe

	if err := src.Start(fe.HandleEdge); err != nil {
		d.frontend = nil

		return fmt.Errorf("start edge source: %w", err)
	}

	d.edgeSrc = src
	logger.Info("attached", "driver", driver)

	return nil
}

// AttachPackets starts receiving complete packets from src.
func (d *Decoder) AttachPackets(src PacketSource) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.edgeSrc != nil || d.packetSrc != nil {
		return ErrAlreadyAttached
	}

	d.resetState()

	if err := src.Start(d.slot.Publish); err != nil {
		return fmt.Errorf("start packet source: %w", err)
	}

	d.packetSrc = src
	logger.Info("attached to packet source")

	return nil
}

// Detach stops the source.  When it returns no more packets are assembled
// and all partial state is gone.
func (d *Decoder) Detach() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error

	switch {
	case d.edgeSrc != nil:
		err = d.edgeSrc.Stop()
		d.frontend.close()
		d.edgeSrc = nil
		d.frontend = nil
	case d.packetSrc != nil:
		err = d.packetSrc.Stop()
		d.packetSrc = nil
	default:
		return ErrNotAttached
	}

	d.asm.Reset()
	d.slot.Reset()
	d.cv.closeServiceMode()
	logger.Info("detached")

	if err != nil {
		return fmt.Errorf("stop source: %w", err)
	}

	return nil
}
