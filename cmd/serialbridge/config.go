package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	serial "github.com/luhtfiimanal/go-serial-bridge"
	"github.com/luhtfiimanal/go-serial-bridge/bridge"
	"github.com/luhtfiimanal/go-serial-bridge/internal/logging"
)

type options struct {
	bridge bridge.Config
	log    logging.Config
}

func defaultOptions() options {
	return options{
		bridge: bridge.DefaultConfig(),
		log:    logging.DefaultConfig(),
	}
}

type fileConfig struct {
	Device       string `toml:"device"`
	PortIndex    int    `toml:"port_index"`
	BaudRate     int    `toml:"baud_rate"`
	Listen       string `toml:"listen"`
	PollInterval string `toml:"poll_interval"`
	MDNS         bool   `toml:"mdns"`
	LogLevel     string `toml:"log_level"`
	NoColor      bool   `toml:"no_color"`
}

// loadConfigFile applies the keys present in the TOML file at path to opts.
func loadConfigFile(path string, opts *options) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("port_index") {
		opts.bridge.Device = serial.DevicePath(raw.PortIndex)
	}
	if meta.IsDefined("device") {
		opts.bridge.Device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("baud_rate") {
		opts.bridge.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("listen") {
		opts.bridge.Addr = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.PollInterval))
		if err != nil {
			return fmt.Errorf("parse poll_interval: %w", err)
		}
		opts.bridge.PollInterval = d
	}
	if meta.IsDefined("mdns") {
		opts.bridge.MDNS = raw.MDNS
	}
	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		opts.log.Level = lvl
	}
	if meta.IsDefined("no_color") {
		opts.log.NoColor = raw.NoColor
	}
	return nil
}

// parseArgs builds options from defaults, then the config file, then flags
// that were set explicitly.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	opts := defaultOptions()

	var (
		configPath   string
		device       string
		portIndex    int
		baud         int
		listen       string
		pollInterval time.Duration
		mdns         bool
		logLevel     string
		noColor      bool
	)

	fs := pflag.NewFlagSet("serialbridge", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false
	fs.StringVarP(&configPath, "config", "c", "",
		"Path to a TOML configuration file")
	fs.StringVarP(&device, "device", "d", opts.bridge.Device,
		"Serial device path")
	fs.IntVarP(&portIndex, "port-index", "p", bridge.DefaultPortIndex,
		"USB serial adapter index, selects /dev/ttyUSB<n>")
	fs.IntVarP(&baud, "baud", "b", opts.bridge.BaudRate,
		"Serial baud rate")
	fs.StringVarP(&listen, "listen", "l", opts.bridge.Addr,
		"TCP address to accept the client on")
	fs.DurationVar(&pollInterval, "poll-interval", opts.bridge.PollInterval,
		"Serial port polling interval")
	fs.BoolVar(&mdns, "mdns", false,
		"Announce the endpoint over mDNS (non-loopback addresses only)")
	fs.StringVar(&logLevel, "log-level", "info",
		"Log level (trace, debug, info, warn, error, off)")
	fs.BoolVar(&noColor, "no-color", false,
		"Disable coloured log output")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Bridge a serial device to a single TCP client\nUsage of serialbridge:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if configPath != "" {
		if err := loadConfigFile(configPath, &opts); err != nil {
			return options{}, err
		}
	}

	if fs.Changed("port-index") {
		opts.bridge.Device = serial.DevicePath(portIndex)
	}
	if fs.Changed("device") {
		opts.bridge.Device = device
	}
	if fs.Changed("baud") {
		opts.bridge.BaudRate = baud
	}
	if fs.Changed("listen") {
		opts.bridge.Addr = listen
	}
	if fs.Changed("poll-interval") {
		opts.bridge.PollInterval = pollInterval
	}
	if fs.Changed("mdns") {
		opts.bridge.MDNS = mdns
	}
	if fs.Changed("log-level") {
		lvl, ok := logging.ParseLevel(logLevel)
		if !ok {
			return options{}, fmt.Errorf("invalid --log-level %q", logLevel)
		}
		opts.log.Level = lvl
	}
	if fs.Changed("no-color") {
		opts.log.NoColor = noColor
	}

	return opts, nil
}
