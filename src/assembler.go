package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Build DCC packets from a stream of bits.
 *
 * Description:	The bit format on the rails, NMRA S-9.2 / RCN-211:
 *
 *			1111111111 0 dddddddd 0 dddddddd 0 dddddddd 1
 *			preamble   start     sep      sep     end
 *
 *		A decoder must not accept a preamble of fewer than 10
 *		one bits, so we wait for strictly more than 10 before
 *		looking for the start bit.  Data bytes are sent most
 *		significant bit first.  Each byte is followed by a 0
 *		(another byte follows) or a 1 (end of packet).
 *
 *		Nothing here checks the error detection byte.  That is
 *		left to the polling side so this stays short.
 *
 *------------------------------------------------------------------*/

import (
	"sync/atomic"
)

type AssemblerState int

const (
	AwaitPreamble AssemblerState = iota
	AwaitStartBit
	AwaitData
	AwaitEndBit
)

func (s AssemblerState) String() string {
	switch s {
	case AwaitPreamble:
		return "await-preamble"
	case AwaitStartBit:
		return "await-start-bit"
	case AwaitData:
		return "await-data"
	case AwaitEndBit:
		return "await-end-bit"
	}

	return "invalid"
}

const minPreambleOnes = 11 /* strictly more than 10 */

type Assembler struct {
	state    AssemblerState
	bitCount int /* Ones in the preamble, or bits of the current byte. */
	tempByte byte
	temp     [MaxPacketSize]byte
	tempSize int

	out *PacketSlot

	oversize atomic.Uint64
}

func NewAssembler(out *PacketSlot) *Assembler {
	return &Assembler{out: out} //nolint:exhaustruct
}

func (a *Assembler) State() AssemblerState {
	return a.state
}

// AwaitingStartBit reports whether a complete preamble has been seen and the
// start bit has not arrived yet.
func (a *Assembler) AwaitingStartBit() bool {
	return a.state == AwaitStartBit
}

// Reset goes back to looking for a preamble and discards any partial packet.
func (a *Assembler) Reset() {
	a.state = AwaitPreamble
	a.bitCount = 0
	a.tempByte = 0
	a.tempSize = 0
}

// Oversize counts packets abandoned because a seventh byte started.
func (a *Assembler) Oversize() uint64 {
	return a.oversize.Load()
}

/*------------------------------------------------------------------
 *
 * Name:	PutBit
 *
 * Purpose:	Advance the state machine by one received bit.
 *
 * Inputs:	one	- True for a logical 1.
 *
 * Description:	When the end bit of a packet arrives, the packet is
 *		published to the slot and we go back to the preamble.
 *
 *------------------------------------------------------------------*/

func (a *Assembler) PutBit(one bool) {
	switch a.state {
	case AwaitPreamble:
		if !one {
			a.bitCount = 0
			return
		}

		a.bitCount++
		if a.bitCount >= minPreambleOnes {
			a.state = AwaitStartBit
		}

	case AwaitStartBit:
		if one {
			return /* Preamble may be longer. */
		}

		a.tempSize = 0
		a.startByte()

	case AwaitData:
		a.tempByte <<= 1
		if one {
			a.tempByte |= 1
		}

		a.bitCount++
		if a.bitCount == 8 {
			a.temp[a.tempSize] = a.tempByte
			a.tempSize++
			a.state = AwaitEndBit
		}

	case AwaitEndBit:
		if one {
			if a.out != nil {
				a.out.Publish(a.temp[:a.tempSize])
			}

			a.Reset()

			return
		}

		if a.tempSize == MaxPacketSize {
			a.oversize.Add(1)
			a.Reset()

			return
		}

		a.startByte()
	}
}

func (a *Assembler) startByte() {
	a.state = AwaitData
	a.bitCount = 0
	a.tempByte = 0
}

// PutSymbol applies one capture driver output.
func (a *Assembler) PutSymbol(s Symbol) {
	switch s {
	case SymbolOne:
		a.PutBit(true)
	case SymbolZero:
		a.PutBit(false)
	case SymbolResync:
		a.Reset()
	case SymbolNone:
	}
}
