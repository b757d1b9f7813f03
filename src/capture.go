package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Turn edges and timer events on the DCC input into bits.
 *
 * Description:	Different hardware offers different ways to tell a
 *		DCC 1 (two halves of about 58 us) from a DCC 0 (two
 *		halves of about 100 us or more).  Each way is a driver
 *		behind the BitCaptureDriver interface:
 *
 *		EdgeTiming	Time between edges of one polarity,
 *				measured with a free running clock.
 *
 *		FixedDelay	Sample the level a fixed time after
 *				each rising edge with a one-shot timer.
 *
 *		PeriodicRearm	Same, but with a periodic timer that is
 *				restarted on every edge.
 *
 *		HalfBitCapture	Hardware input capture measures every
 *				half bit; both halves must agree.
 *
 *		A driver never touches the assembler directly.  It
 *		returns a Symbol which the caller feeds to it.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"time"
)

type Symbol int

const (
	SymbolNone   Symbol = iota /* Nothing decided. */
	SymbolZero                 /* Logical 0. */
	SymbolOne                  /* Logical 1. */
	SymbolResync               /* Lost sync, back to the preamble. */
)

func (s Symbol) String() string {
	switch s {
	case SymbolNone:
		return "none"
	case SymbolZero:
		return "0"
	case SymbolOne:
		return "1"
	case SymbolResync:
		return "resync"
	}

	return "invalid"
}

type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
)

func (e Edge) Opposite() Edge {
	if e == EdgeRising {
		return EdgeFalling
	}

	return EdgeRising
}

func (e Edge) String() string {
	if e == EdgeRising {
		return "rising"
	}

	return "falling"
}

type EventKind int

const (
	EventEdge    EventKind = iota /* Input changed. Edge and Timestamp valid. */
	EventTimer                    /* Timer expired.  Level valid. */
	EventCapture                  /* Input capture fired.  Read Elapsed from the timer. */
)

type CaptureEvent struct {
	Kind      EventKind
	Edge      Edge
	Timestamp time.Duration /* Monotonic, any origin. */
	Level     bool          /* Input level sampled when the timer expired. */
}

// BitCaptureDriver classifies input events.  awaitingStart tells the driver
// whether the assembler has a complete preamble and waits for the start bit.
type BitCaptureDriver interface {
	Submit(ev CaptureEvent, awaitingStart bool) Symbol
	Reset()
	Name() string
}

// TimerPeripheral is the hardware timer a driver may use.
type TimerPeripheral interface {
	ArmOneShot(d time.Duration)
	ArmPeriodic(d time.Duration)
	Elapsed() time.Duration /* Between the last two capture events. */
	Stop()
}

// EdgeSelector switches the input capture between rising and falling edges.
type EdgeSelector interface {
	ToggleCaptureEdge()
}

var ErrUnknownDriver = errors.New("unknown capture driver")

const (
	DriverEdgeTiming    = "edge"
	DriverFixedDelay    = "fixed-delay"
	DriverPeriodicRearm = "periodic"
	DriverHalfBit       = "halfbit"
)

var DriverNames = []string{DriverEdgeTiming, DriverFixedDelay, DriverPeriodicRearm, DriverHalfBit}

/*------------------------------------------------------------------
 *
 * Name:	NewDriver
 *
 * Purpose:	Create a capture driver by name.
 *
 * Inputs:	name	- One of DriverNames.
 *
 *		timer	- Needed by all but the edge timing driver.
 *
 *		sel	- Needed by the half bit driver only.
 *
 *------------------------------------------------------------------*/

func NewDriver(name string, timer TimerPeripheral, sel EdgeSelector) (BitCaptureDriver, error) {
	switch name {
	case DriverEdgeTiming:
		return NewEdgeTiming(), nil
	case DriverFixedDelay:
		return NewFixedDelay(timer), nil
	case DriverPeriodicRearm:
		return NewPeriodicRearm(timer), nil
	case DriverHalfBit:
		return NewHalfBitCapture(timer, sel), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
}
