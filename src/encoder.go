package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Produce the DCC signal for given packets.
 *
 * Description:	The receive side is tested by generating a signal,
 *		feeding it through the frontend and comparing what
 *		comes out.  dccgen writes the same signal to a file so
 *		it can be replayed with dccdecode.
 *
 *		The signal is represented as the time between
 *		consecutive edges.  Each bit is two halves.
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type Waveform struct {
	Preamble int           /* One bits before each packet. */
	OneHalf  time.Duration /* Nominal 58 us */
	ZeroHalf time.Duration /* Nominal 100 us */
}

// DefaultWaveform is what a command station sends, RCN-210 and RCN-211.
func DefaultWaveform() Waveform {
	return Waveform{
		Preamble: 14,
		OneHalf:  58 * time.Microsecond,
		ZeroHalf: 100 * time.Microsecond,
	}
}

// Bits returns p as it goes on the wire, preamble to end bit.
func (w Waveform) Bits(p RawPacket) []bool {
	var bits = make([]bool, 0, w.Preamble+1+9*p.Size)

	for range w.Preamble {
		bits = append(bits, true)
	}

	for i, b := range p.Bytes() {
		bits = append(bits, false) /* start bit, or separator */

		for k := 7; k >= 0; k-- {
			bits = append(bits, b&(1<<k) != 0)
		}

		if i == p.Size-1 {
			bits = append(bits, true) /* end bit */
		}
	}

	return bits
}

// HalfBits converts bits to edge intervals.
func (w Waveform) HalfBits(bits []bool) []time.Duration {
	var out = make([]time.Duration, 0, 2*len(bits))

	for _, one := range bits {
		var h = w.ZeroHalf
		if one {
			h = w.OneHalf
		}

		out = append(out, h, h)
	}

	return out
}

// Intervals is the signal for the packets sent back to back.
func (w Waveform) Intervals(packets ...RawPacket) []time.Duration {
	var out []time.Duration

	for _, p := range packets {
		out = append(out, w.HalfBits(w.Bits(p))...)
	}

	return out
}

/*------------------------------------------------------------------
 *
 * Name:	ReadIntervals
 *
 * Purpose:	Read a recorded signal.
 *
 * Description:	One interval per line, in microseconds, fractions
 *		allowed.  Lines starting with # are comments.  Several
 *		values on a line, separated by blanks or commas, are
 *		also accepted.
 *
 *------------------------------------------------------------------*/

func ReadIntervals(r io.Reader) ([]time.Duration, error) {
	var scanner = bufio.NewScanner(r)
	var out []time.Duration
	var lineno int

	for scanner.Scan() {
		lineno++

		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, field := range strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == ',' }) {
			var us, err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}

			out = append(out, time.Duration(us*float64(time.Microsecond)))
		}
	}

	return out, scanner.Err()
}

func WriteIntervals(w io.Writer, intervals []time.Duration) error {
	var bw = bufio.NewWriter(w)

	for _, d := range intervals {
		fmt.Fprintf(bw, "%g\n", float64(d)/float64(time.Microsecond))
	}

	return bw.Flush()
}
