package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Hand a completed packet from the capture side to the
 *		polling side.
 *
 * Description:	There is exactly one producer (the assembler, running
 *		from the edge source callback) and exactly one consumer
 *		(Decoder.Input).  The slot holds at most one packet.
 *		A newer packet overwrites one that was not yet taken;
 *		the overwrite is counted.
 *
 *		The copy in and out is guarded by a mutex so the
 *		consumer never sees a half written packet.  The ready
 *		flag is atomic so the consumer can poll it without
 *		taking the lock.
 *
 *------------------------------------------------------------------*/

import (
	"sync"
	"sync/atomic"
)

type PacketSlot struct {
	mu     sync.Mutex
	packet RawPacket
	ready  atomic.Bool

	overwritten atomic.Uint64

	notify chan struct{} /* Capacity 1, never blocks the producer. */
}

func NewPacketSlot() *PacketSlot {
	return &PacketSlot{notify: make(chan struct{}, 1)} //nolint:exhaustruct
}

// Publish stores a copy of b as the current packet and marks it ready.
func (s *PacketSlot) Publish(b []byte) {
	s.mu.Lock()

	if s.ready.Load() {
		s.overwritten.Add(1)
	}

	s.packet = NewRawPacket(b...)
	s.ready.Store(true)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Take copies the ready packet into p and clears the ready flag.
// It returns false, leaving p alone, when nothing is waiting.
func (s *PacketSlot) Take(p *RawPacket) bool {
	if !s.ready.Load() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready.Load() {
		return false
	}

	*p = s.packet
	s.ready.Store(false)

	return true
}

func (s *PacketSlot) Ready() bool {
	return s.ready.Load()
}

// Notify is signalled after every Publish.  A pending signal may refer to a
// packet that was already taken, so receivers should still check Take.
func (s *PacketSlot) Notify() <-chan struct{} {
	return s.notify
}

func (s *PacketSlot) Overwritten() uint64 {
	return s.overwritten.Load()
}

// Reset drops any waiting packet and clears the counters.
func (s *PacketSlot) Reset() {
	s.mu.Lock()
	s.packet = RawPacket{}
	s.ready.Store(false)
	s.overwritten.Store(0)
	s.mu.Unlock()

	select {
	case <-s.notify:
	default:
	}
}
