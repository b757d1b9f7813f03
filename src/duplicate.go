package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Recognize packets we have just seen.
 *
 * Description:	Command stations send every packet more than once.
 *
 *		Accessory commands are acted on once and the copies
 *		that follow are dropped (Repeat).
 *
 *		Configuration variable access is more careful, RCN-214
 *		and RCN-216 both require that the same packet arrives
 *		twice in a row before it is executed.  It is executed
 *		on the second copy only, not the third or any later
 *		one (Confirm).
 *
 *		Only the most recent key is kept.  Loco commands don't
 *		use this, command stations interleave packets for the
 *		same loco so they are compared with the loco state.
 *
 *------------------------------------------------------------------*/

const maxKeySize = MaxPacketSize + 1

type repeatFilter struct {
	key   [maxKeySize]byte
	size  int /* 0 when nothing remembered. */
	count int /* Copies of key received in a row. */
}

func (f *repeatFilter) same(key []byte) bool {
	if f.size == 0 || len(key) != f.size {
		return false
	}

	for i, b := range key {
		if f.key[i] != b {
			return false
		}
	}

	return true
}

func (f *repeatFilter) remember(key []byte) {
	f.size = copy(f.key[:], key)
	f.count = 1
}

// Repeat reports whether key equals the previous key, and remembers it if not.
func (f *repeatFilter) Repeat(key []byte) bool {
	if f.same(key) {
		f.count++

		return true
	}

	f.remember(key)

	return false
}

// Confirm is true only for the second copy of key in a row.
func (f *repeatFilter) Confirm(key []byte) bool {
	if !f.same(key) {
		f.remember(key)

		return false
	}

	f.count++

	return f.count == 2
}

func (f *repeatFilter) Clear() {
	f.size = 0
	f.count = 0
}
