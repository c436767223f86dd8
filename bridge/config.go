package bridge

import (
	"errors"
	"fmt"
	"time"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

const (
	// FrameSize is the length of every frame in both directions.
	FrameSize = 12

	// DefaultAddr is the loopback endpoint the client connects to.
	DefaultAddr = "127.0.0.1:10000"
	// DefaultBaudRate is the line speed of the serial device.
	DefaultBaudRate = 115200
	// DefaultPortIndex selects /dev/ttyUSB0.
	DefaultPortIndex = 0
	// DefaultPollInterval is the time between two device reads.
	DefaultPollInterval = 100 * time.Millisecond

	// ListenBacklog admits one pending connection behind the attached client.
	ListenBacklog = 1
)

// Config holds the bridge endpoints and timing.
type Config struct {
	Device       string
	BaudRate     int
	Addr         string
	PollInterval time.Duration

	// MDNS announces the listening endpoint on the local network when it is
	// bound to a non-loopback address.
	MDNS bool

	// OpenDevice acquires the frame channel. Nil opens Device as a serial port.
	OpenDevice func(Config) (Device, error)
}

// DefaultConfig returns the built-in endpoints: the first USB serial adapter
// at 115200 baud bridged to 127.0.0.1:10000.
func DefaultConfig() Config {
	return Config{
		Device:       serial.DevicePath(DefaultPortIndex),
		BaudRate:     DefaultBaudRate,
		Addr:         DefaultAddr,
		PollInterval: DefaultPollInterval,
	}
}

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if c.Device == "" {
		return errors.New("bridge: device path is required")
	}
	if c.Addr == "" {
		return errors.New("bridge: listen address is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("bridge: poll interval must be positive, got %v", c.PollInterval)
	}
	return nil
}
