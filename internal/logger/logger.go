// Package logger builds the zerolog logger shared by the server and the CLIs.
package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Output formats accepted in logging.format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to stderr, human readable unless format is "json".
func New(level, format string) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if format == FormatJSON {
		w = os.Stderr
	}
	return NewWithWriter(w, level)
}

func parseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', defaulting to 'info'\n", level)
		return zerolog.InfoLevel
	}
	return l
}

// buildInfo reports the Go version and VCS revision the binary was built with.
func buildInfo() (goVersion, revision string) {
	goVersion, revision = "unknown", "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return goVersion, revision
	}
	goVersion = info.GoVersion
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			revision = s.Value
			break
		}
	}
	return goVersion, revision
}

// NewWithWriter returns a logger at the given level writing JSON lines to w.
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano

	goVersion, revision := buildInfo()

	l := zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Caller().
		Int("pid", os.Getpid()).
		Str("go_version", goVersion).
		Str("git_revision", revision).
		Logger()

	zerolog.DefaultContextLogger = &l
	return l
}
