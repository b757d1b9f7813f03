package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Generate a DCC signal, as edge intervals, for testing.
 *
 * Inputs:	Packets in hexadecimal, one per line, from the files
 *		given or stdin.  With --checksum the error byte is
 *		appended, otherwise it must be there already.
 *
 * Outputs:	Edge intervals in microseconds, one per line, for
 *		dccdecode --edges.
 *
 * Examples:	echo "03 64" | dccgen -c -r 3 > sig.txt
 *		dccdecode -e -l 3 sig.txt
 *
 *		Slow zeros and a short preamble:
 *
 *			dccgen -c -z 116 -p 11 packets.txt
 *
 *------------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

func DccGenMain() {
	var checksum = pflag.BoolP("checksum", "c", false, "Append the error detection byte.")
	var preamble = pflag.IntP("preamble", "p", DefaultWaveform().Preamble, "Preamble length in bits.")
	var oneHalf = pflag.Float64("one", 58, "Half bit time of a 1, microseconds.")
	var zeroHalf = pflag.Float64P("zero", "z", 100, "Half bit time of a 0, microseconds.")
	var repeat = pflag.IntP("repeat", "r", 1, "Send every packet this many times.")
	var output = pflag.StringP("output", "o", "", "Output file.  Default stdout.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "DCC signal generator.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dccgen [options] [file ...]\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	var w = Waveform{
		Preamble: *preamble,
		OneHalf:  time.Duration(*oneHalf * float64(time.Microsecond)),
		ZeroHalf: time.Duration(*zeroHalf * float64(time.Microsecond)),
	}

	var inputs []io.Reader
	for _, name := range pflag.Args() {
		var f, err = os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		defer f.Close()

		inputs = append(inputs, f)
	}

	if len(inputs) == 0 {
		inputs = append(inputs, os.Stdin)
	}

	var out io.Writer = os.Stdout
	if *output != "" {
		var f, err = os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		defer f.Close()

		out = f
	}

	if err := GeneratePackets(io.MultiReader(inputs...), out, w, *checksum, *repeat); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// GeneratePackets turns hex packet lines from r into an edge interval file.
func GeneratePackets(r io.Reader, out io.Writer, w Waveform, addChecksum bool, repeat int) error {
	var scanner = bufio.NewScanner(r)
	var packets []RawPacket

	for scanner.Scan() {
		var line = strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var p, err = ParseHexPacket(line, addChecksum)
		if err != nil {
			return err
		}

		for range max(repeat, 1) {
			packets = append(packets, p)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return WriteIntervals(out, w.Intervals(packets...))
}
