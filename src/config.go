package dcc

/*------------------------------------------------------------------
 *
 * Purpose:	Configuration file for dccmon.
 *
 * Description:	YAML, for example:
 *
 *		input:
 *		  source: gpio
 *		  driver: edge
 *		  chip: gpiochip0
 *		  line: 17
 *		  ack_line: 27
 *		loco:
 *		  address: "3"
 *		accessory:
 *		  address: "1-4"
 *		  master: lenz
 *		service_mode:
 *		  timeout: 40ms
 *		output:
 *		  timestamp_format: "%H:%M:%S"
 *		  listen: ":4561"
 *		cvs:
 *		  1: 3
 *		  29: 6
 *
 *		Anything left out keeps the value from DefaultConfig.
 *		Command line options override the file.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

const (
	SourceGPIO   = "gpio"
	SourceAudio  = "audio"
	SourceSerial = "serial"
)

type Config struct {
	Input       InputConfig       `yaml:"input"`
	Loco        LocoConfig        `yaml:"loco"`
	Accessory   AccessoryConfig   `yaml:"accessory"`
	ServiceMode ServiceModeConfig `yaml:"service_mode"`
	Output      OutputConfig      `yaml:"output"`
	Log         LogConfig         `yaml:"log"`
	CVs         map[int]int       `yaml:"cvs"`
}

type InputConfig struct {
	Source string `yaml:"source"`
	Driver string `yaml:"driver"`

	Chip    string `yaml:"chip"`
	Line    int    `yaml:"line"`
	PullUp  bool   `yaml:"pull_up"`
	AckLine int    `yaml:"ack_line"` /* -1 for none */

	SampleRate float64 `yaml:"sample_rate"`
	Hysteresis int     `yaml:"hysteresis"`

	Serial string `yaml:"serial"`
	Baud   int    `yaml:"baud"`

	Realtime bool `yaml:"realtime"`
}

type LocoConfig struct {
	Address string `yaml:"address"` /* "3" or "3-5", empty for none */
}

type AccessoryConfig struct {
	Address          string `yaml:"address"`
	Master           string `yaml:"master"`
	OutputAddressing bool   `yaml:"output_addressing"`
}

type ServiceModeConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	AckDuration time.Duration `yaml:"ack_duration"`
}

type OutputConfig struct {
	TimestampFormat string `yaml:"timestamp_format"`
	ShowPacket      bool   `yaml:"show_packet"`
	ShowIgnored     bool   `yaml:"show_ignored"`
	Pty             bool   `yaml:"pty"`
	Listen          string `yaml:"listen"`
	DNSSDName       string `yaml:"dns_sd_name"`
	Announce        bool   `yaml:"announce"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		Input: InputConfig{ //nolint:exhaustruct
			Source:     SourceGPIO,
			Driver:     DriverEdgeTiming,
			Chip:       "gpiochip0",
			Line:       17,
			AckLine:    -1,
			SampleRate: DefaultAudioRate,
			Hysteresis: DefaultAudioHysteresis,
			Baud:       DefaultSerialBaud,
		},
		Loco:      LocoConfig{Address: ""},
		Accessory: AccessoryConfig{Address: "", Master: MasterLenz.String(), OutputAddressing: false},
		ServiceMode: ServiceModeConfig{
			Timeout:     DefaultSmTimeout,
			AckDuration: DefaultAckDuration,
		},
		Output: OutputConfig{TimestampFormat: "%H:%M:%S"}, //nolint:exhaustruct
		Log:    LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28}, //nolint:exhaustruct
		CVs:    map[int]int{},
	}
}

// LoadConfig reads path on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	var cfg = DefaultConfig()

	var f, err = os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var dec = yaml.NewDecoder(f)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{SourceGPIO, SourceAudio, SourceSerial}, c.Input.Source) {
		errs = append(errs, fmt.Errorf("input.source %q: want gpio, audio or serial", c.Input.Source))
	}

	if !slices.Contains(DriverNames, c.Input.Driver) {
		errs = append(errs, fmt.Errorf("input.driver: %w: %q", ErrUnknownDriver, c.Input.Driver))
	}

	if c.Input.Source == SourceSerial && c.Input.Serial == "" {
		errs = append(errs, errors.New("input.serial: needed for serial input"))
	}

	if _, _, err := ParseAddressRange(c.Loco.Address, MaxLocoAddress); err != nil {
		errs = append(errs, fmt.Errorf("loco.address: %w", err))
	}

	if _, _, err := ParseAddressRange(c.Accessory.Address, MaxOutputAddress); err != nil {
		errs = append(errs, fmt.Errorf("accessory.address: %w", err))
	}

	if _, err := ParseMaster(c.Accessory.Master); err != nil {
		errs = append(errs, fmt.Errorf("accessory.master: %w", err))
	}

	if c.ServiceMode.Timeout <= 0 {
		errs = append(errs, errors.New("service_mode.timeout: must be positive"))
	}

	for cv, v := range c.CVs {
		if cv < 1 || cv > MaxCV || v < 0 || v > 255 {
			errs = append(errs, fmt.Errorf("cvs: CV%d = %d out of range", cv, v))
		}
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Apply sets addresses, master and service mode timing of d.
func (c *Config) Apply(d *Decoder) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var first, last, _ = ParseAddressRange(c.Loco.Address, MaxLocoAddress)
	d.SetLocoAddressRange(first, last)

	first, last, _ = ParseAddressRange(c.Accessory.Address, MaxOutputAddress)
	d.SetAccessoryAddressRange(first, last)

	var master, _ = ParseMaster(c.Accessory.Master)
	d.SetMaster(master)
	d.SetOutputAddressing(c.Accessory.OutputAddressing)

	d.SetSmTimeout(c.ServiceMode.Timeout)

	if c.ServiceMode.AckDuration > 0 {
		d.SetAckDuration(c.ServiceMode.AckDuration)
	}

	return nil
}

/*------------------------------------------------------------------
 *
 * Name:	SetupLogging
 *
 * Purpose:	Log level, and optionally a rotated log file in
 *		addition to stderr.
 *
 *------------------------------------------------------------------*/

func (c *Config) SetupLogging() error {
	if err := SetLogLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Log.File == "" {
		return nil
	}

	var rotator = &lumberjack.Logger{ //nolint:exhaustruct
		Filename:   c.Log.File,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
	}

	logger.SetOutput(io.MultiWriter(os.Stderr, rotator))

	return nil
}

const (
	MaxLocoAddress   = 10239 /* RCN-211, 14 bit addresses 1 .. 10239 */
	MaxOutputAddress = 2047
)

/*------------------------------------------------------------------
 *
 * Name:	ParseAddressRange
 *
 * Purpose:	Parse "3" or "3-5".
 *
 * Returns:	First and last address.  Both NoAddress for the empty
 *		string, which means "none".
 *
 *------------------------------------------------------------------*/

func ParseAddressRange(s string, limit uint16) (uint16, uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoAddress, NoAddress, nil
	}

	var lo, hi, isRange = strings.Cut(s, "-")

	var first, err = strconv.ParseUint(strings.TrimSpace(lo), 10, 16)
	if err != nil {
		return NoAddress, NoAddress, fmt.Errorf("address %q: %w", s, err)
	}

	var last = first
	if isRange {
		last, err = strconv.ParseUint(strings.TrimSpace(hi), 10, 16)
		if err != nil {
			return NoAddress, NoAddress, fmt.Errorf("address %q: %w", s, err)
		}
	}

	if last < first || last > uint64(limit) {
		return NoAddress, NoAddress, fmt.Errorf("address %q: want first <= last <= %d", s, limit)
	}

	return uint16(first), uint16(last), nil
}
