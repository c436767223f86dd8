// Package logging configures the zerolog console logger used by serialbridge.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Environment variables read by ApplyEnv.
const (
	// EnvLogLevel overrides the level, e.g. "debug".
	EnvLogLevel = "SERIALBRIDGE_LOG_LEVEL"
	// EnvLogTimestamp toggles timestamps with a strconv.ParseBool value.
	EnvLogTimestamp = "SERIALBRIDGE_LOG_TIMESTAMP"
	// EnvLogNoColor disables colour with a strconv.ParseBool value.
	EnvLogNoColor = "SERIALBRIDGE_LOG_NOCOLOR"
)

// Config selects the logger level and console formatting.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// DefaultConfig logs at info level with timestamps and colour.
func DefaultConfig() Config {
	return Config{
		Level:     zerolog.InfoLevel,
		Timestamp: true,
	}
}

// ApplyEnv overrides cfg from the SERIALBRIDGE_LOG_* environment variables.
func ApplyEnv(cfg *Config) {
	applyEnvOverrides(cfg, os.Getenv)
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if lvl, ok := ParseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// New returns a console logger writing to w. Colour is turned off when w is
// a file that is not a terminal.
func New(w io.Writer, app string, cfg Config) zerolog.Logger {
	noColor := cfg.NoColor
	if f, ok := w.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		noColor = true
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		output.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	ctx := zerolog.New(output).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Str("app", app).Logger()
}

// ParseLevel accepts zerolog level names plus a few aliases. The second
// result is false for empty or unknown input.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
