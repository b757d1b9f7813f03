package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Decode bits from input capture of every half bit.
 *
 * Description:	The capture hardware measures the time between two
 *		edges.  After every capture we switch to the opposite
 *		edge, so each measurement is one half bit.  Both halves
 *		of a bit must be of the same kind (RCN-210 section 5):
 *
 *			one half	52 .. 64 us
 *			zero half	90 .. 119 us
 *
 *		If the halves disagree we start over with the preamble.
 *		A one half after a zero half means we are out of step
 *		by one half, so we also skip one edge by switching the
 *		capture edge back.
 *
 *		A preamble can legally end in an odd number of half
 *		bits.  A zero half while expecting the second half of a
 *		one is then really the first half of the start bit.
 *
 *------------------------------------------------------------------*/

import (
	"time"
)

const (
	oneHalfMin  = 52 * time.Microsecond
	oneHalfMax  = 64 * time.Microsecond
	zeroHalfMin = 90 * time.Microsecond
	zeroHalfMax = 119 * time.Microsecond
)

type halfBitState int

const (
	expectAnything halfBitState = iota
	expectOne                   /* Second half of a 1. */
	expectZero                  /* Second half of a 0. */
)

type HalfBitCapture struct {
	timer TimerPeripheral
	sel   EdgeSelector
	state halfBitState
}

func NewHalfBitCapture(timer TimerPeripheral, sel EdgeSelector) *HalfBitCapture {
	return &HalfBitCapture{timer: timer, sel: sel, state: expectAnything}
}

func (d *HalfBitCapture) Name() string { return DriverHalfBit }

func (d *HalfBitCapture) Reset() {
	d.state = expectAnything
}

func (d *HalfBitCapture) Submit(ev CaptureEvent, awaitingStart bool) Symbol {
	if ev.Kind != EventCapture {
		return SymbolNone
	}

	var delta = d.timer.Elapsed()

	d.sel.ToggleCaptureEdge()

	var isOne = delta >= oneHalfMin && delta <= oneHalfMax
	var isZero = delta >= zeroHalfMin && delta <= zeroHalfMax

	switch {
	case isOne:
		switch d.state {
		case expectAnything:
			d.state = expectOne

			return SymbolNone
		case expectOne:
			d.state = expectAnything

			return SymbolOne
		case expectZero:
			d.state = expectAnything
			d.sel.ToggleCaptureEdge()

			return SymbolResync
		}

	case isZero:
		switch d.state {
		case expectAnything:
			d.state = expectZero

			return SymbolNone
		case expectZero:
			d.state = expectAnything

			return SymbolZero
		case expectOne:
			if awaitingStart {
				d.state = expectZero

				return SymbolNone
			}

			d.state = expectAnything

			return SymbolResync
		}
	}

	return SymbolNone
}
