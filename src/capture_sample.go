package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Decode bits by sampling the input level a fixed time
 *		after each rising edge.
 *
 * Description:	A 1 has a first half of about 58 us, a 0 of at least
 *		90 us.  Somewhere in between the level tells us which
 *		one we have: already low means a 1, still high a 0.
 *
 *		Two kinds of timer are supported.  FixedDelay uses a
 *		one-shot.  PeriodicRearm uses a periodic timer whose
 *		counter is restarted on every edge and stopped again
 *		after the first expiry; the shorter delay allows for
 *		interrupt latency of that kind of timer.
 *
 *------------------------------------------------------------------*/

import (
	"time"
)

const (
	fixedSampleDelay    = 77 * time.Microsecond
	periodicSampleDelay = 66 * time.Microsecond
)

type sampler struct {
	timer    TimerPeripheral
	delay    time.Duration
	periodic bool
	armed    bool
}

func (s *sampler) submit(ev CaptureEvent) Symbol {
	switch ev.Kind {
	case EventEdge:
		if ev.Edge != EdgeRising {
			return SymbolNone
		}

		if s.periodic {
			s.timer.ArmPeriodic(s.delay)
		} else {
			s.timer.ArmOneShot(s.delay)
		}

		s.armed = true

	case EventTimer:
		if !s.armed {
			return SymbolNone
		}

		if s.periodic {
			s.timer.Stop()
		}

		s.armed = false

		if ev.Level {
			return SymbolZero
		}

		return SymbolOne

	case EventCapture:
	}

	return SymbolNone
}

func (s *sampler) reset() {
	if s.armed {
		s.timer.Stop()
	}

	s.armed = false
}

type FixedDelay struct {
	sampler
}

func NewFixedDelay(timer TimerPeripheral) *FixedDelay {
	return &FixedDelay{sampler{timer: timer, delay: fixedSampleDelay}} //nolint:exhaustruct
}

func (d *FixedDelay) Name() string { return DriverFixedDelay }

func (d *FixedDelay) Reset() { d.reset() }

func (d *FixedDelay) Submit(ev CaptureEvent, _ bool) Symbol { return d.submit(ev) }

type PeriodicRearm struct {
	sampler
}

func NewPeriodicRearm(timer TimerPeripheral) *PeriodicRearm {
	return &PeriodicRearm{sampler{timer: timer, delay: periodicSampleDelay, periodic: true}} //nolint:exhaustruct
}

func (d *PeriodicRearm) Name() string { return DriverPeriodicRearm }

func (d *PeriodicRearm) Reset() { d.reset() }

func (d *PeriodicRearm) Submit(ev CaptureEvent, _ bool) Symbol { return d.submit(ev) }
