package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Configuration variables of a decoder, kept in memory.
 *
 * Description:	Carries out the CV access commands the decoder
 *		confirmed, so dccmon can act as a complete decoder on a
 *		programming track.  A real decoder would keep these in
 *		EEPROM.
 *
 *------------------------------------------------------------------*/

import (
	"sync"
)

const MaxCV = 1024

// CVs 7 and 8 (version, manufacturer) can't be written.
var readOnlyCVs = map[uint16]bool{7: true, 8: true}

type CVStore struct {
	mu     sync.Mutex
	values [MaxCV + 1]uint8 /* Index 0 unused. */
}

func NewCVStore(defaults map[int]int) *CVStore {
	var s = new(CVStore)

	for cv, v := range defaults {
		if cv >= 1 && cv <= MaxCV {
			s.values[cv] = uint8(v)
		}
	}

	return s
}

func (s *CVStore) Get(cv uint16) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cv < 1 || cv > MaxCV {
		return 0
	}

	return s.values[cv]
}

/*------------------------------------------------------------------
 *
 * Name:	Execute
 *
 * Purpose:	Carry out one confirmed CV access command.
 *
 * Returns:	True if the decoder should acknowledge: the verify
 *		matched, or the write was done.
 *
 *------------------------------------------------------------------*/

func (s *CVStore) Execute(c *CvAccess) bool {
	if c.Number < 1 || c.Number > MaxCV {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var cur = s.values[c.Number]

	switch c.Operation {
	case CvVerifyByte:
		return cur == c.Value

	case CvWriteByte:
		if readOnlyCVs[c.Number] {
			return false
		}

		s.values[c.Number] = c.Value

		return true

	case CvBitManipulation:
		if !c.WriteCmd {
			return c.VerifyBit(cur)
		}

		if readOnlyCVs[c.Number] {
			return false
		}

		s.values[c.Number] = c.WriteBit(cur)

		return true

	case CvReserved:
	}

	return false
}
