package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Connect an input of edges to a capture driver and the
 *		packet assembler.
 *
 * Description:	On a microcontroller the drivers are called from
 *		interrupt handlers and use real timers.  On a Linux
 *		host we get edges with kernel timestamps (GPIO) or
 *		sample positions (sound card), after the fact.
 *
 *		The Frontend gives the drivers a VirtualTimer that runs
 *		on those timestamps.  A timer expiry is only delivered
 *		once the next edge tells us that time has passed the
 *		deadline; the input level cannot have changed in
 *		between, so the sample is the same as it would have
 *		been in real time.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"sync"
	"time"
)

// EdgeHandler receives every change of the DCC input, in time order.
type EdgeHandler func(edge Edge, ts time.Duration)

// EdgeSource is anything that reports changes of the DCC input.
type EdgeSource interface {
	Start(h EdgeHandler) error
	Stop() error
}

// PacketSource delivers complete packets, e.g. from an external sniffer.
type PacketSource interface {
	Start(publish func(b []byte)) error
	Stop() error
}

/*------------------------------------------------------------------
 *
 * Name:	VirtualTimer
 *
 * Purpose:	TimerPeripheral and EdgeSelector driven by event
 *		timestamps instead of a clock.
 *
 *------------------------------------------------------------------*/

type VirtualTimer struct {
	now      time.Duration
	deadline time.Duration
	period   time.Duration /* 0 for one-shot */
	running  bool

	captureEdge Edge
	lastCapture time.Duration
	elapsed     time.Duration
}

func (t *VirtualTimer) ArmOneShot(d time.Duration) {
	t.deadline = t.now + d
	t.period = 0
	t.running = true
}

func (t *VirtualTimer) ArmPeriodic(d time.Duration) {
	t.deadline = t.now + d
	t.period = d
	t.running = true
}

func (t *VirtualTimer) Stop() {
	t.running = false
}

func (t *VirtualTimer) Elapsed() time.Duration {
	return t.elapsed
}

func (t *VirtualTimer) ToggleCaptureEdge() {
	t.captureEdge = t.captureEdge.Opposite()
}

func (t *VirtualTimer) reset() {
	*t = VirtualTimer{} //nolint:exhaustruct
}

// expire advances to the next deadline not after ts.  It returns false
// when there is none.
func (t *VirtualTimer) expire(ts time.Duration) bool {
	if !t.running || t.deadline > ts {
		return false
	}

	t.now = t.deadline

	if t.period == 0 {
		t.running = false
	} else {
		t.deadline += t.period
	}

	return true
}

// capture records an edge for the input capture unit.  It returns false if
// the unit currently waits for the other edge.
func (t *VirtualTimer) capture(edge Edge, ts time.Duration) bool {
	if edge != t.captureEdge {
		return false
	}

	t.elapsed = ts - t.lastCapture
	t.lastCapture = ts

	return true
}

type Frontend struct {
	mu       sync.Mutex
	driver   BitCaptureDriver
	timer    *VirtualTimer
	asm      *Assembler
	level    bool /* Input level since the last edge. */
	attached bool

	edges uint64
}

func NewFrontend(driverName string, asm *Assembler) (*Frontend, error) {
	var timer = new(VirtualTimer)

	var driver, err = NewDriver(driverName, timer, timer)
	if err != nil {
		return nil, err
	}

	return &Frontend{driver: driver, timer: timer, asm: asm, attached: true}, nil //nolint:exhaustruct
}

func (f *Frontend) Driver() BitCaptureDriver {
	return f.driver
}

// HandleEdge is the EdgeHandler to give to an EdgeSource.
func (f *Frontend) HandleEdge(edge Edge, ts time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.attached {
		return
	}

	f.edges++

	f.runTimer(ts)

	f.level = edge == EdgeRising
	f.timer.now = ts

	f.put(CaptureEvent{Kind: EventEdge, Edge: edge, Timestamp: ts}) //nolint:exhaustruct

	if f.timer.capture(edge, ts) {
		f.put(CaptureEvent{Kind: EventCapture, Edge: edge, Timestamp: ts}) //nolint:exhaustruct
	}
}

func (f *Frontend) runTimer(ts time.Duration) {
	for f.timer.expire(ts) {
		f.put(CaptureEvent{Kind: EventTimer, Timestamp: f.timer.now, Level: f.level}) //nolint:exhaustruct
	}
}

func (f *Frontend) put(ev CaptureEvent) {
	f.asm.PutSymbol(f.driver.Submit(ev, f.asm.AwaitingStartBit()))
}

// Reset clears the driver, timer and assembler, and accepts edges again.
func (f *Frontend) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.driver.Reset()
	f.timer.reset()
	f.asm.Reset()
	f.level = false
	f.edges = 0
	f.attached = true
}

// close drops all further edges.  When it returns no HandleEdge is running.
func (f *Frontend) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attached = false
	f.driver.Reset()
	f.timer.reset()
	f.asm.Reset()
}

func (f *Frontend) Edges() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.edges
}

/*------------------------------------------------------------------
 *
 * Name:	IntervalSource
 *
 * Purpose:	EdgeSource playing back a recorded or generated signal.
 *
 * Inputs:	Intervals	- Time between consecutive edges.  The first
 *				  edge is at time 0, so there is one more
 *				  edge than intervals.
 *
 *		First		- Polarity of the first edge.  They alternate.
 *
 *		AfterEdge	- If set, called after every edge, e.g. to
 *				  take packets from the decoder as they
 *				  complete.
 *
 * Description:	Start only takes the handler.  Run plays the signal,
 *		in the caller's goroutine, as fast as possible.  It
 *		ends with one extra edge well after the last one so
 *		pending timer samples are delivered.
 *
 *------------------------------------------------------------------*/

type IntervalSource struct {
	Intervals []time.Duration
	First     Edge
	AfterEdge func()

	h EdgeHandler
}

const replayTail = time.Millisecond

func (s *IntervalSource) Start(h EdgeHandler) error {
	s.h = h

	return nil
}

func (s *IntervalSource) Stop() error {
	s.h = nil

	return nil
}

func (s *IntervalSource) Run() error {
	if s.h == nil {
		return ErrNotAttached
	}

	var ts time.Duration
	var edge = s.First

	s.edge(edge, ts)

	for i, d := range s.Intervals {
		if d <= 0 {
			return fmt.Errorf("interval %d: %v is not positive", i, d)
		}

		ts += d
		edge = edge.Opposite()
		s.edge(edge, ts)
	}

	s.edge(edge.Opposite(), ts+replayTail)

	return nil
}

func (s *IntervalSource) edge(e Edge, ts time.Duration) {
	s.h(e, ts)

	if s.AfterEdge != nil {
		s.AfterEdge()
	}
}
