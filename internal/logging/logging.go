package logging

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Formats accepted by Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config mirrors the log section of the application config.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Mask   bool   `yaml:"mask"`
}

// Validate rejects unknown levels and formats.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", FormatConsole, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
}

// New builds a logger writing to w.
func New(cfg Config, w io.Writer) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := w
	if cfg.Mask {
		out = NewMaskingWriter(out)
	}
	switch cfg.Format {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !isTerminal(w),
			TimeFormat: time.TimeOnly,
		}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// maskPattern matches long runs of upper-case letters and digits, the shape
// of encoded key material and tokens.
var maskPattern = regexp.MustCompile(`[A-Z0-9]{20,}`)

// MaskingWriter redacts maskPattern matches from every write.
type MaskingWriter struct {
	w io.Writer
}

// NewMaskingWriter wraps w.
func NewMaskingWriter(w io.Writer) *MaskingWriter { return &MaskingWriter{w: w} }

// Write redacts p and forwards it. It reports len(p) on success so callers
// are not confused by the changed length.
func (m *MaskingWriter) Write(p []byte) (int, error) {
	if _, err := m.w.Write(maskPattern.ReplaceAll(p, []byte("[MASKED]"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
