package status

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"parley/internal/domain"
)

// Console prints status lines and chat messages for a terminal user and
// mirrors status events into the structured log.
type Console struct {
	mu       sync.Mutex
	messages io.Writer
	status   io.Writer
	log      zerolog.Logger
}

// NewConsole returns a Console writing chat lines to messages and status
// lines to status.
func NewConsole(messages, status io.Writer, log zerolog.Logger) *Console {
	return &Console{
		messages: messages,
		status:   status,
		log:      log.With().Str("component", "status").Logger(),
	}
}

// Info reports progress.
func (c *Console) Info(msg string) {
	c.log.Debug().Msg(msg)
	c.printf(c.status, "* %s\n", msg)
}

// Warn reports something unexpected that was handled.
func (c *Console) Warn(msg string) {
	c.log.Warn().Msg(msg)
	c.printf(c.status, "! %s\n", msg)
}

// Error reports a locally recovered failure.
func (c *Console) Error(msg string, err error) {
	c.log.Error().Err(err).Msg(msg)
	if err != nil {
		c.printf(c.status, "! %s: %v\n", msg, err)
		return
	}
	c.printf(c.status, "! %s\n", msg)
}

// Deliver prints a decrypted message, labelled by origin.
func (c *Console) Deliver(m domain.DeliveredMessage) {
	if m.Origin == domain.Echo {
		c.printf(c.messages, "[You -> %s]: %s\n", Printable(m.Peer.String()), Printable(string(m.Plaintext)))
		return
	}
	c.printf(c.messages, "[%s]: %s\n", Printable(m.Peer.String()), Printable(string(m.Plaintext)))
}

// Printable drops control characters and bidi overrides from s so peer text
// cannot drive the terminal. Tabs are kept; invalid UTF-8 becomes U+FFFD.
func Printable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t':
			return r
		case unicode.IsControl(r):
			return -1
		case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069:
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, "\uFFFD"))
}

func (c *Console) printf(w io.Writer, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

var (
	_ domain.StatusSink  = (*Console)(nil)
	_ domain.MessageSink = (*Console)(nil)
)
