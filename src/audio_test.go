package dcc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edgeRecord struct {
	edge Edge
	ts   time.Duration
}

// square is a signal starting low, then alternating high and low for the
// given numbers of samples.
func square(halves ...int) []int16 {
	var samples = []int16{-1000}
	var level int16 = 1000

	for _, n := range halves {
		for range n {
			samples = append(samples, level)
		}

		level = -level
	}

	return samples
}

func TestLevelDetector(t *testing.T) {
	var det = levelDetector{rate: 1e6, hysteresis: 100} //nolint:exhaustruct
	var got []edgeRecord

	var h = func(e Edge, ts time.Duration) { got = append(got, edgeRecord{e, ts}) }

	var samples = square(58, 58, 100, 100)

	// State carries over from one buffer to the next.
	det.feed(samples[:70], h)
	det.feed(samples[70:], h)

	require.Len(t, got, 4)

	var want = []float64{0.5, 58.5, 116.5, 216.5}
	for i, r := range got {
		assert.InDelta(t, want[i]*1000, float64(r.ts), 1, "edge %d", i)
	}

	assert.Equal(t, EdgeRising, got[0].edge)
	assert.Equal(t, EdgeFalling, got[1].edge)
	assert.Equal(t, EdgeRising, got[2].edge)
	assert.Equal(t, EdgeFalling, got[3].edge)
}

func TestLevelDetector_Hysteresis(t *testing.T) {
	var det = levelDetector{rate: 1e6, hysteresis: 100} //nolint:exhaustruct
	var n int

	det.feed([]int16{-50, 50, -50, 50, 99, 0, -99}, func(Edge, time.Duration) { n++ })
	assert.Zero(t, n, "noise inside the band")

	det.feed([]int16{101, 50, -50}, func(Edge, time.Duration) { n++ })
	assert.Equal(t, 1, n)
}

func TestCrossing(t *testing.T) {
	assert.InDelta(t, 0.5, crossing(-100, 100), 1e-9)
	assert.InDelta(t, 0.25, crossing(-100, 300), 1e-9)
	assert.InDelta(t, 1.0, crossing(100, 300), 1e-9)
}

// A recorded signal through the level detector and a capture driver.
func TestLevelDetector_Decode(t *testing.T) {
	var w = DefaultWaveform()
	var p = NewRawPacket(0x03, 0x64, 0x67)

	var halves []int
	for _, d := range w.Intervals(p) {
		halves = append(halves, int(d/time.Microsecond))
	}

	var det = levelDetector{rate: 1e6, hysteresis: 100} //nolint:exhaustruct
	var stamps []time.Duration

	det.feed(square(append(halves, 58)...), func(_ Edge, ts time.Duration) { stamps = append(stamps, ts) })
	require.Len(t, stamps, len(halves)+1)

	var intervals []time.Duration
	for i := 1; i < len(stamps); i++ {
		intervals = append(intervals, (stamps[i]-stamps[i-1]+time.Microsecond/2).Truncate(time.Microsecond))
	}

	assert.Equal(t, w.Intervals(p), intervals)
	assert.Equal(t, []RawPacket{p}, receive(t, DriverHalfBit, EdgeRising, intervals))
}
