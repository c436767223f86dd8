package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-serial-bridge/bridge"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)

	require.Equal(t, "/dev/ttyUSB0", opts.bridge.Device)
	require.Equal(t, bridge.DefaultBaudRate, opts.bridge.BaudRate)
	require.Equal(t, "127.0.0.1:10000", opts.bridge.Addr)
	require.Equal(t, 100*time.Millisecond, opts.bridge.PollInterval)
	require.False(t, opts.bridge.MDNS)
	require.Equal(t, zerolog.InfoLevel, opts.log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	opts := defaultOptions()
	require.NoError(t, loadConfigFile("ex.config.toml", &opts))

	require.Equal(t, "/dev/ttyUSB1", opts.bridge.Device)
	require.Equal(t, 57600, opts.bridge.BaudRate)
	require.Equal(t, "127.0.0.1:10001", opts.bridge.Addr)
	require.Equal(t, 50*time.Millisecond, opts.bridge.PollInterval)
	require.Equal(t, zerolog.DebugLevel, opts.log.Level)
	require.True(t, opts.log.NoColor)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	opts, err := parseArgs([]string{
		"--config", "ex.config.toml",
		"--device", "/dev/ttyACM0",
		"--listen", "127.0.0.1:12000",
		"--poll-interval", "250ms",
	}, io.Discard)
	require.NoError(t, err)

	require.Equal(t, "/dev/ttyACM0", opts.bridge.Device)
	require.Equal(t, "127.0.0.1:12000", opts.bridge.Addr)
	require.Equal(t, 250*time.Millisecond, opts.bridge.PollInterval)
	// Untouched by flags, so the file wins.
	require.Equal(t, 57600, opts.bridge.BaudRate)
}

func TestParseArgsPortIndex(t *testing.T) {
	opts, err := parseArgs([]string{"-p", "2"}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB2", opts.bridge.Device)
}

func TestParseArgsErrors(t *testing.T) {
	_, err := parseArgs([]string{"--help"}, io.Discard)
	require.ErrorIs(t, err, pflag.ErrHelp)

	_, err = parseArgs([]string{"--log-level", "loud"}, io.Discard)
	require.ErrorContains(t, err, "log-level")

	_, err = parseArgs([]string{"extra"}, io.Discard)
	require.ErrorContains(t, err, "unexpected argument")

	_, err = parseArgs([]string{"--config", "missing.toml"}, io.Discard)
	require.Error(t, err)
}

func TestLoadConfigFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("listen = \"127.0.0.1:1\"\nbaudrate = 9600\n"), 0o600))

	opts := defaultOptions()
	err := loadConfigFile(path, &opts)
	require.ErrorContains(t, err, "baudrate")
}

func TestLoadConfigFileBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval = \"soon\"\n"), 0o600))

	opts := defaultOptions()
	require.ErrorContains(t, loadConfigFile(path, &opts), "poll_interval")
}
