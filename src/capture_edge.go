package dcc

import (
	"time"
)

// Full bit periods between edges of the same polarity, RCN-210.
// A 1 is 2 x 52..64 us, a 0 is 2 x 90..116 us (longer is allowed but we
// don't accept stretched zeros).
const (
	edgeMargin = 10 * time.Microsecond

	oneBitMin  = 104*time.Microsecond - edgeMargin
	oneBitMax  = 128*time.Microsecond + edgeMargin
	zeroBitMin = 180*time.Microsecond - edgeMargin
	zeroBitMax = 232*time.Microsecond + edgeMargin
)

/*------------------------------------------------------------------
 *
 * Name:	EdgeTiming
 *
 * Purpose:	Decode bits from the time between edges of one polarity.
 *
 * Description:	If we look at the wrong polarity, every interval spans
 *		the second half of one bit and the first half of the
 *		next.  Where a 1 is followed by a 0 (or the reverse)
 *		that gives about 158 us, which is neither a 1 nor a 0.
 *		Seeing that we switch to the other polarity and start
 *		over with the preamble.
 *
 *------------------------------------------------------------------*/

type EdgeTiming struct {
	edge     Edge
	last     time.Duration
	haveLast bool
}

func NewEdgeTiming() *EdgeTiming {
	return &EdgeTiming{edge: EdgeRising} //nolint:exhaustruct
}

func (d *EdgeTiming) Name() string { return DriverEdgeTiming }

func (d *EdgeTiming) Reset() {
	d.edge = EdgeRising
	d.haveLast = false
}

func (d *EdgeTiming) Submit(ev CaptureEvent, _ bool) Symbol {
	if ev.Kind != EventEdge || ev.Edge != d.edge {
		return SymbolNone
	}

	var delta = ev.Timestamp - d.last
	var first = !d.haveLast

	d.last = ev.Timestamp
	d.haveLast = true

	if first {
		return SymbolNone
	}

	switch {
	case delta >= oneBitMin && delta < oneBitMax:
		return SymbolOne
	case delta >= oneBitMax && delta < zeroBitMin:
		d.edge = d.edge.Opposite()
		d.haveLast = false

		return SymbolResync
	case delta >= zeroBitMin && delta < zeroBitMax:
		return SymbolZero
	}

	return SymbolNone
}
