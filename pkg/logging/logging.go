// Package logging builds the slog handlers used by the command line.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// TimeFormat is the timestamp layout of the text handler.
const TimeFormat = "15:04:05"

var (
	// ErrUnknownLevel is returned for a level name slog does not know.
	ErrUnknownLevel = errors.New("logging: unknown level")
	// ErrUnknownFormat is returned for a format other than text or json.
	ErrUnknownFormat = errors.New("logging: unknown format")
)

// Options configures New.
type Options struct {
	Level   string
	Format  string
	NoColor bool
}

// ParseLevel maps debug, info, warn and error to slog levels.
// Empty selects info.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return 0, fmt.Errorf("%w %q", ErrUnknownLevel, name)
	}
	return level, nil
}

// New returns a logger writing to w: colored text through tint, or JSON.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: TimeFormat,
			NoColor:    opts.NoColor,
		})), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, opts.Format)
	}
}
