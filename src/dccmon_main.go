//go:build linux

package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for the live DCC monitor and decoder.
 *
 * Description:	Listens to the rails through a GPIO line, a sound card
 *		or a serial sniffer.  Every command that concerns the
 *		configured addresses is printed; with --all, everything.
 *		Events can also go to a pseudo terminal and to TCP
 *		clients.
 *
 *		On a programming track, with --ack-line, it behaves as a
 *		decoder with the CVs from the configuration file and
 *		acknowledges service mode commands.
 *
 * Examples:	dccmon -l 3 -a 1-4 --line 17
 *		dccmon -s audio -D halfbit -A
 *		dccmon -c dccmon.yaml -L :4561 --dns-sd-name "Layout"
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

func DccMonMain() {
	var configFile = pflag.StringP("config", "c", "", "Configuration file (YAML).")
	var source = pflag.StringP("source", "s", "", "Input: gpio, audio or serial.")
	var driver = pflag.StringP("driver", "D", "", "Capture driver: edge, fixed-delay, periodic or halfbit.")
	var chip = pflag.String("chip", "", "GPIO chip, e.g. gpiochip0.")
	var line = pflag.Int("line", 0, "GPIO line of the DCC input.")
	var ackLine = pflag.Int("ack-line", -1, "GPIO line for service mode acknowledgement.")
	var serial = pflag.String("serial", "", "Serial device of a packet sniffer.")
	var baud = pflag.Int("baud", 0, "Serial speed.")
	var rate = pflag.Float64("rate", 0, "Audio sample rate.")
	var loco = pflag.StringP("loco", "l", "", "Loco address or range, e.g. 3 or 3-5.")
	var acc = pflag.StringP("accessory", "a", "", "Accessory address or range.")
	var master = pflag.StringP("master", "m", "", "Command station: lenz, roco or opendcc.")
	var outputAddressing = pflag.Bool("output-addressing", false, "Accessory range refers to output addresses.")
	var timestamp = pflag.StringP("timestamp-format", "T", "", "strftime format for line time stamps.")
	var showPacket = pflag.BoolP("packet", "x", false, "Show the raw packet bytes.")
	var all = pflag.BoolP("all", "A", false, "Also show ignored packets and other locos.")
	var usePty = pflag.BoolP("pty", "p", false, "Also write events to a pseudo terminal.")
	var listen = pflag.StringP("listen", "L", "", "Serve JSON events over TCP on this address, e.g. :4561.")
	var dnsSDName = pflag.String("dns-sd-name", "", "Announce the event server with DNS-SD under this name.")
	var listDevices = pflag.Bool("list-devices", false, "List possible input devices and exit.")
	var realtime = pflag.Bool("realtime", false, "Lock memory and raise priority.")
	var debug = pflag.BoolP("debug", "d", false, "Debug logging.")
	var version = pflag.BoolP("version", "v", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "DCC monitor.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: dccmon [options]\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *version {
		printVersion("dccmon", *debug)
		os.Exit(0)
	}

	if *listDevices {
		var devices, err = ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}

		for _, dev := range devices {
			fmt.Println(dev)
		}

		os.Exit(0)
	}

	var cfg = DefaultConfig()
	if *configFile != "" {
		var loaded, err = LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			os.Exit(1)
		}

		cfg = loaded
	}

	var changed = pflag.CommandLine.Changed

	if changed("source") {
		cfg.Input.Source = *source
	}
	if changed("driver") {
		cfg.Input.Driver = *driver
	}
	if changed("chip") {
		cfg.Input.Chip = *chip
	}
	if changed("line") {
		cfg.Input.Line = *line
	}
	if changed("ack-line") {
		cfg.Input.AckLine = *ackLine
	}
	if changed("serial") {
		cfg.Input.Serial = *serial
		if !changed("source") {
			cfg.Input.Source = SourceSerial
		}
	}
	if changed("baud") {
		cfg.Input.Baud = *baud
	}
	if changed("rate") {
		cfg.Input.SampleRate = *rate
	}
	if changed("loco") {
		cfg.Loco.Address = *loco
	}
	if changed("accessory") {
		cfg.Accessory.Address = *acc
	}
	if changed("master") {
		cfg.Accessory.Master = *master
	}
	if changed("output-addressing") {
		cfg.Accessory.OutputAddressing = *outputAddressing
	}
	if changed("timestamp-format") {
		cfg.Output.TimestampFormat = *timestamp
	}
	if changed("packet") {
		cfg.Output.ShowPacket = *showPacket
	}
	if changed("all") {
		cfg.Output.ShowIgnored = *all
	}
	if changed("pty") {
		cfg.Output.Pty = *usePty
	}
	if changed("listen") {
		cfg.Output.Listen = *listen
	}
	if changed("dns-sd-name") {
		cfg.Output.DNSSDName = *dnsSDName
		cfg.Output.Announce = true
	}
	if changed("realtime") {
		cfg.Input.Realtime = *realtime
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	if err := runMonitor(&cfg); err != nil {
		logger.Error("dccmon", "err", err)
		os.Exit(1)
	}
}

type monitor struct {
	d         *Decoder
	formatter *EventFormatter
	store     *CVStore
	showAll   bool
	pty       *PtyWriter
	server    *EventServer
}

func runMonitor(cfg *Config) error {
	if err := cfg.SetupLogging(); err != nil {
		return err
	}

	if cfg.Input.Realtime {
		if err := RealtimeSetup(-10); err != nil {
			logger.Warn("realtime setup", "err", err)
		}
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var d = NewDecoder(nil)
	if err := cfg.Apply(d); err != nil {
		return err
	}

	var formatter, err = NewEventFormatter(cfg.Output.TimestampFormat, cfg.Output.ShowPacket)
	if err != nil {
		return err
	}

	var m = &monitor{d: d, formatter: formatter, store: NewCVStore(cfg.CVs), showAll: cfg.Output.ShowIgnored} //nolint:exhaustruct

	if cfg.Input.AckLine >= 0 && cfg.Input.Source == SourceGPIO {
		var ack, err = OpenGPIOAckLine(cfg.Input.Chip, cfg.Input.AckLine)
		if err != nil {
			return err
		}
		defer ack.Close()

		d.SetAckLine(ack)
	}

	if cfg.Output.Pty {
		var p, err = OpenPty()
		if err != nil {
			return err
		}
		defer p.Close()

		fmt.Fprintf(os.Stderr, "Events on pseudo terminal %s\n", p.Name())

		m.pty = p
	}

	if cfg.Output.Listen != "" {
		var s, err = ListenEvents(cfg.Output.Listen)
		if err != nil {
			return err
		}
		defer s.Close()

		m.server = s

		if cfg.Output.Announce {
			if err := AnnounceEventServer(ctx, cfg.Output.DNSSDName, s.Port()); err != nil {
				logger.Warn("DNS-SD", "err", err)
			}
		}
	}

	switch cfg.Input.Source {
	case SourceSerial:
		err = d.AttachPackets(&SerialPacketSource{Device: cfg.Input.Serial, Baud: cfg.Input.Baud}) //nolint:exhaustruct
	case SourceAudio:
		err = d.Attach(&AudioEdgeSource{SampleRate: cfg.Input.SampleRate, Hysteresis: int16(cfg.Input.Hysteresis)}, cfg.Input.Driver) //nolint:exhaustruct
	default:
		err = d.Attach(&GPIOEdgeSource{Chip: cfg.Input.Chip, Offset: cfg.Input.Line, PullUp: cfg.Input.PullUp}, cfg.Input.Driver) //nolint:exhaustruct
	}

	if err != nil {
		return err
	}

	m.loop(ctx)

	var stats = d.Stats()
	logger.Info("stopped", "edges", stats.Edges, "checksum errors", stats.ErrorXOR, "overwritten", stats.Overwritten, "oversize", stats.Oversize)

	return d.Detach()
}

func (m *monitor) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.d.Ready():
		}

		for m.d.Input() {
			m.handle(time.Now())
		}
	}
}

func (m *monitor) handle(now time.Time) {
	var d = m.d

	switch d.CmdType {
	case CmdSm:
		if m.store.Execute(&d.CV) {
			if err := d.SendAck(); err != nil {
				logger.Error("acknowledge", "err", err)
			}
		}
	case CmdMyPom:
		m.store.Execute(&d.CV)
	}

	if !m.showAll && !Interesting(d.CmdType) {
		return
	}

	var text = m.formatter.Format(d, now)
	fmt.Println(text)

	if m.pty != nil {
		if err := m.pty.WriteLine(text); err != nil {
			logger.Debug("pty write", "err", err)
		}
	}

	if m.server != nil {
		if err := m.server.Send(NewEvent(d, now)); err != nil {
			logger.Error("event server", "err", err)
		}
	}
}
