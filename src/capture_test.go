package dcc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTimer records what a driver asks of the timer hardware.
type mockTimer struct {
	oneShot  time.Duration
	periodic time.Duration
	stopped  int
	elapsed  time.Duration
	toggles  int
}

func (m *mockTimer) ArmOneShot(d time.Duration)  { m.oneShot = d }
func (m *mockTimer) ArmPeriodic(d time.Duration) { m.periodic = d }
func (m *mockTimer) Stop()                       { m.stopped++ }
func (m *mockTimer) Elapsed() time.Duration      { return m.elapsed }
func (m *mockTimer) ToggleCaptureEdge()          { m.toggles++ }

func us(n float64) time.Duration {
	return time.Duration(n * float64(time.Microsecond))
}

func rising(ts time.Duration) CaptureEvent {
	return CaptureEvent{Kind: EventEdge, Edge: EdgeRising, Timestamp: ts} //nolint:exhaustruct
}

func falling(ts time.Duration) CaptureEvent {
	return CaptureEvent{Kind: EventEdge, Edge: EdgeFalling, Timestamp: ts} //nolint:exhaustruct
}

func TestEdgeTiming_Bits(t *testing.T) {
	var d = NewEdgeTiming()
	var ts time.Duration

	assert.Equal(t, SymbolNone, d.Submit(rising(ts), false), "first edge only starts timing")

	ts += us(58)
	assert.Equal(t, SymbolNone, d.Submit(falling(ts), false), "other polarity ignored")

	ts += us(58)
	assert.Equal(t, SymbolOne, d.Submit(rising(ts), false))

	ts += us(200)
	assert.Equal(t, SymbolZero, d.Submit(rising(ts), false))

	ts += us(96)
	assert.Equal(t, SymbolOne, d.Submit(rising(ts), false), "short 1 with margin")

	ts += us(240)
	assert.Equal(t, SymbolZero, d.Submit(rising(ts), false), "long 0 with margin")

	ts += us(400)
	assert.Equal(t, SymbolNone, d.Submit(rising(ts), false), "stretched zero ignored")

	ts += us(60)
	assert.Equal(t, SymbolNone, d.Submit(rising(ts), false), "glitch ignored")
}

func TestEdgeTiming_PolarityFlip(t *testing.T) {
	var d = NewEdgeTiming()

	d.Submit(rising(0), false)
	assert.Equal(t, SymbolResync, d.Submit(rising(us(158)), false))

	assert.Equal(t, SymbolNone, d.Submit(rising(us(316)), false), "now looking at falling edges")
	assert.Equal(t, SymbolNone, d.Submit(falling(us(374)), false))
	assert.Equal(t, SymbolOne, d.Submit(falling(us(490)), false))

	d.Reset()
	assert.Equal(t, SymbolNone, d.Submit(falling(us(606)), false))
	assert.Equal(t, DriverEdgeTiming, d.Name())
}

func TestFixedDelay(t *testing.T) {
	var timer = new(mockTimer)
	var d = NewFixedDelay(timer)

	assert.Equal(t, SymbolNone, d.Submit(CaptureEvent{Kind: EventTimer}, false), "not armed") //nolint:exhaustruct

	assert.Equal(t, SymbolNone, d.Submit(falling(0), false))
	assert.Equal(t, time.Duration(0), timer.oneShot, "falling edges don't arm")

	assert.Equal(t, SymbolNone, d.Submit(rising(0), false))
	assert.Equal(t, us(77), timer.oneShot)
	assert.Equal(t, SymbolOne, d.Submit(CaptureEvent{Kind: EventTimer, Level: false}, false)) //nolint:exhaustruct

	d.Submit(rising(us(116)), false)
	assert.Equal(t, SymbolZero, d.Submit(CaptureEvent{Kind: EventTimer, Level: true}, false)) //nolint:exhaustruct
	assert.Equal(t, 0, timer.stopped, "one-shot stops by itself")

	assert.Equal(t, DriverFixedDelay, d.Name())
}

func TestPeriodicRearm(t *testing.T) {
	var timer = new(mockTimer)
	var d = NewPeriodicRearm(timer)

	d.Submit(rising(0), false)
	assert.Equal(t, us(66), timer.periodic)

	assert.Equal(t, SymbolOne, d.Submit(CaptureEvent{Kind: EventTimer}, false)) //nolint:exhaustruct
	assert.Equal(t, 1, timer.stopped)

	assert.Equal(t, SymbolNone, d.Submit(CaptureEvent{Kind: EventTimer}, false), "only the first expiry counts") //nolint:exhaustruct

	d.Submit(rising(us(116)), false)
	d.Reset()
	assert.Equal(t, 2, timer.stopped, "reset stops an armed timer")
	assert.Equal(t, DriverPeriodicRearm, d.Name())
}

func capture(d BitCaptureDriver, timer *mockTimer, elapsed float64, awaitingStart bool) Symbol {
	timer.elapsed = us(elapsed)

	return d.Submit(CaptureEvent{Kind: EventCapture}, awaitingStart) //nolint:exhaustruct
}

func TestHalfBitCapture_Bits(t *testing.T) {
	var timer = new(mockTimer)
	var d = NewHalfBitCapture(timer, timer)

	assert.Equal(t, SymbolNone, capture(d, timer, 58, false))
	assert.Equal(t, SymbolOne, capture(d, timer, 58, false))
	assert.Equal(t, SymbolNone, capture(d, timer, 100, false))
	assert.Equal(t, SymbolZero, capture(d, timer, 100, false))
	assert.Equal(t, SymbolNone, capture(d, timer, 52, false))
	assert.Equal(t, SymbolOne, capture(d, timer, 64, false))
	assert.Equal(t, SymbolNone, capture(d, timer, 90, false))
	assert.Equal(t, SymbolZero, capture(d, timer, 119, false))
	assert.Equal(t, 8, timer.toggles, "edge switched after every half")

	assert.Equal(t, SymbolNone, capture(d, timer, 75, false), "between the bands")
	assert.Equal(t, SymbolNone, d.Submit(rising(0), false), "edges are not captures")
	assert.Equal(t, DriverHalfBit, d.Name())
}

func TestHalfBitCapture_Disagree(t *testing.T) {
	var timer = new(mockTimer)
	var d = NewHalfBitCapture(timer, timer)

	capture(d, timer, 100, false)
	timer.toggles = 0
	assert.Equal(t, SymbolResync, capture(d, timer, 58, false))
	assert.Equal(t, 2, timer.toggles, "one edge skipped")

	capture(d, timer, 58, false)
	assert.Equal(t, SymbolResync, capture(d, timer, 100, false), "zero half in the middle of a one")
}

func TestHalfBitCapture_OddPreamble(t *testing.T) {
	var timer = new(mockTimer)
	var d = NewHalfBitCapture(timer, timer)

	capture(d, timer, 58, true)
	assert.Equal(t, SymbolNone, capture(d, timer, 100, true), "first half of the start bit")
	assert.Equal(t, SymbolZero, capture(d, timer, 100, true))

	d.Reset()
	assert.Equal(t, SymbolNone, capture(d, timer, 100, false))
}

func TestNewDriver(t *testing.T) {
	var timer = new(mockTimer)

	for _, name := range DriverNames {
		var d, err = NewDriver(name, timer, timer)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}

	var _, err = NewDriver("pio", timer, timer)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestSymbol_String(t *testing.T) {
	assert.Equal(t, "1", SymbolOne.String())
	assert.Equal(t, "0", SymbolZero.String())
	assert.Equal(t, "resync", SymbolResync.String())
	assert.Equal(t, "none", SymbolNone.String())
	assert.Equal(t, "falling", EdgeRising.Opposite().String())
}
