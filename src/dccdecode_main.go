package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for the standalone DCC packet decoder.
 *
 * Inputs:	A file, or stdin, with one of
 *
 *		Packets in hexadecimal, one per line, error byte
 *		included:
 *
 *			03 64 67
 *			ff 00 ff
 *
 *		Or, with --edges, a recorded signal: the time between
 *		edges in microseconds, one per line.  This goes through
 *		the selected capture driver first.
 *
 *			58
 *			58
 *			100
 *
 * Outputs:	stdout, one line per packet.
 *
 * Description:	dccgen -o sig.txt packets.txt
 *		dccdecode --edges --driver halfbit -l 3 sig.txt
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
)

func DccDecodeMain() {
	var edges = pflag.BoolP("edges", "e", false, "Input is edge intervals in microseconds, not packets.")
	var driver = pflag.StringP("driver", "D", DriverEdgeTiming, "Capture driver for --edges: edge, fixed-delay, periodic or halfbit.")
	var falling = pflag.BoolP("falling", "F", false, "First edge of the recording is a falling edge.")
	var loco = pflag.StringP("loco", "l", "", "Loco address or range, e.g. 3 or 3-5.")
	var acc = pflag.StringP("accessory", "a", "", "Accessory address or range.")
	var master = pflag.StringP("master", "m", MasterLenz.String(), "Command station: lenz, roco or opendcc.")
	var outputAddressing = pflag.Bool("output-addressing", false, "Accessory range refers to output addresses.")
	var all = pflag.BoolP("all", "A", false, "Also show ignored packets and other locos.")
	var showPacket = pflag.BoolP("packet", "x", false, "Show the raw packet bytes.")
	var asJSON = pflag.BoolP("json", "j", false, "Print events as JSON.")
	var debug = pflag.BoolP("debug", "d", false, "Debug logging.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "DCC packet decoder.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dccdecode [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Reads stdin if no file, or file is -.\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *version {
		printVersion("dccdecode", *debug)
		os.Exit(0)
	}

	if *debug {
		SetLogLevel("debug") //nolint:errcheck
	}

	var cfg = DefaultConfig()
	cfg.Loco.Address = *loco
	cfg.Accessory.Address = *acc
	cfg.Accessory.Master = *master
	cfg.Accessory.OutputAddressing = *outputAddressing

	var in io.Reader = os.Stdin
	if pflag.NArg() > 0 && pflag.Arg(0) != "-" {
		var f, err = os.Open(pflag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}
		defer f.Close()

		in = f
	}

	var opts = DecodeOptions{
		Edges:      *edges,
		Driver:     *driver,
		First:      EdgeRising,
		All:        *all,
		ShowPacket: *showPacket,
		JSON:       *asJSON,
	}
	if *falling {
		opts.First = EdgeFalling
	}

	if err := DecodeStream(in, os.Stdout, &cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

type DecodeOptions struct {
	Edges      bool
	Driver     string
	First      Edge
	All        bool
	ShowPacket bool
	JSON       bool
}

/*------------------------------------------------------------------
 *
 * Name:	DecodeStream
 *
 * Purpose:	Decode everything in r and write the events to w.
 *
 * Description:	Recorded data has no real time, so the service mode
 *		window can't time out.  Every packet gets a time 5 ms
 *		after the previous one, about what it takes on the
 *		rails.
 *
 *------------------------------------------------------------------*/

const packetSpacing = 5 * time.Millisecond

type steppingClock struct {
	t time.Time
}

func (c *steppingClock) Now() time.Time { return c.t }

func DecodeStream(r io.Reader, w io.Writer, cfg *Config, opts DecodeOptions) error {
	var clock = &steppingClock{t: time.Unix(0, 0).UTC()}
	var d = NewDecoder(clock)

	if err := cfg.Apply(d); err != nil {
		return err
	}

	var formatter, err = NewEventFormatter("", opts.ShowPacket)
	if err != nil {
		return err
	}

	var emit = func() {
		clock.t = clock.t.Add(packetSpacing)

		if !opts.All && !Interesting(d.CmdType) {
			return
		}

		if opts.JSON {
			var b, _ = NewEvent(d, clock.t).JSON()
			fmt.Fprintf(w, "%s\n", b)

			return
		}

		fmt.Fprintln(w, formatter.Format(d, clock.t))
	}

	if !opts.Edges {
		return StreamPackets(r, d, emit)
	}

	var intervals, readErr = ReadIntervals(r)
	if readErr != nil {
		return readErr
	}

	var src = &IntervalSource{Intervals: intervals, First: opts.First} //nolint:exhaustruct
	src.AfterEdge = func() {
		for d.Input() {
			emit()
		}
	}

	if err := d.Attach(src, opts.Driver); err != nil {
		return err
	}

	var runErr = src.Run()

	var stats = d.Stats()
	logger.Debug("done", "edges", stats.Edges, "checksum errors", stats.ErrorXOR, "oversize", stats.Oversize)

	if err := d.Detach(); err != nil {
		return err
	}

	return runErr
}

// StreamPackets decodes hex packet lines from r, calling emit after each.
func StreamPackets(r io.Reader, d *Decoder, emit func()) error {
	var _, err = ReadPacketLines(r, func(b []byte) {
		d.Process(NewRawPacket(b...))
		emit()
	})

	return err
}

// Interesting is false for the packets a monitor normally hides: ignored
// ones and speed packets for other locos, which are most of the traffic.
func Interesting(c CmdType) bool {
	switch c {
	case CmdIgnore, CmdUnknown, CmdSomeLocoSpeedFlag, CmdSomeLocoMovesFlag:
		return false
	}

	return true
}
