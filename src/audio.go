package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Use a sound card input as the DCC edge source.
 *
 * Description:	Handy for looking at a layout from a laptop.  Feed the
 *		rail signal through a voltage divider and a capacitor to
 *		the line input.  A zero crossing, with some hysteresis,
 *		is an edge.  The edge time is interpolated between
 *		samples, so 96 or 192 kHz gives plenty of resolution
 *		for the drivers.  44.1 kHz is too coarse.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	DefaultAudioRate       = 192000
	DefaultAudioHysteresis = 1000
	audioFramesPerBuffer   = 2048
)

// levelDetector finds edges in a stream of samples.
type levelDetector struct {
	rate       float64
	hysteresis int16

	high  bool
	prev  int16
	index int64 /* Samples seen so far.  The first one is at time 0. */
}

// timestamp of a point frac of the way from the previous sample to the
// current one.
func (l *levelDetector) timestamp(frac float64) time.Duration {
	return time.Duration((float64(l.index) - 2 + frac) / l.rate * float64(time.Second))
}

// crossing is where, between the previous and current sample, the signal
// passed zero.  1 when it didn't within this sample.
func crossing(prev, cur int16) float64 {
	if (prev < 0) == (cur < 0) || prev == cur {
		return 1
	}

	return float64(prev) / (float64(prev) - float64(cur))
}

func (l *levelDetector) feed(samples []int16, h EdgeHandler) {
	for _, s := range samples {
		l.index++

		switch {
		case !l.high && s > l.hysteresis:
			l.high = true
			h(EdgeRising, l.timestamp(crossing(l.prev, s)))
		case l.high && s < -l.hysteresis:
			l.high = false
			h(EdgeFalling, l.timestamp(crossing(l.prev, s)))
		}

		l.prev = s
	}
}

type AudioEdgeSource struct {
	SampleRate float64
	Hysteresis int16

	stream *portaudio.Stream
	stop   atomic.Bool
	wg     sync.WaitGroup
}

func (a *AudioEdgeSource) Start(h EdgeHandler) error {
	if a.SampleRate == 0 {
		a.SampleRate = DefaultAudioRate
	}

	if a.Hysteresis == 0 {
		a.Hysteresis = DefaultAudioHysteresis
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: %w", err)
	}

	var buf = make([]int16, audioFramesPerBuffer)

	var stream, err = portaudio.OpenDefaultStream(1, 0, a.SampleRate, len(buf), buf)
	if err != nil {
		portaudio.Terminate() //nolint:errcheck

		return fmt.Errorf("open audio input: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()        //nolint:errcheck
		portaudio.Terminate() //nolint:errcheck

		return fmt.Errorf("start audio input: %w", err)
	}

	a.stream = stream
	a.stop.Store(false)

	var det = levelDetector{rate: a.SampleRate, hysteresis: a.Hysteresis} //nolint:exhaustruct

	a.wg.Add(1)

	go func() {
		defer a.wg.Done()

		for !a.stop.Load() {
			var readErr = stream.Read()
			if readErr != nil && !errors.Is(readErr, portaudio.InputOverflowed) {
				logger.Error("audio input", "err", readErr)

				return
			}

			det.feed(buf, h)
		}
	}()

	logger.Info("audio input", "rate", a.SampleRate)

	return nil
}

func (a *AudioEdgeSource) Stop() error {
	if a.stream == nil {
		return nil
	}

	a.stop.Store(true)
	a.wg.Wait()

	var err = errors.Join(a.stream.Stop(), a.stream.Close(), portaudio.Terminate())
	a.stream = nil

	return err
}
