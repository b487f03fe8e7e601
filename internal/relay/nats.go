package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"parley/internal/domain"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "parley"

// OutboundSubject is where user publishes envelopes for the relay.
func OutboundSubject(prefix string, user domain.Username) string {
	return prefix + ".out." + user.String()
}

// InboundSubject is where the relay delivers envelopes for user.
func InboundSubject(prefix string, user domain.Username) string {
	return prefix + ".in." + user.String()
}

// SenderFromSubject extracts the user from an outbound subject.
func SenderFromSubject(prefix, subject string) (domain.Username, bool) {
	user, ok := strings.CutPrefix(subject, prefix+".out.")
	if !ok || !ValidSubjectToken(user) {
		return "", false
	}
	return domain.Username(user), true
}

// ValidSubjectToken reports whether s can be used as a single subject token.
func ValidSubjectToken(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, ".*> \t\r\n")
}

// NATS is a Transport that talks to the relay bridge over NATS subjects.
type NATS struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	self   domain.Username
	prefix string
	owned  bool
	log    zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	inbound chan domain.Envelope
	once    sync.Once
}

// DialNATS connects to the NATS server at url and returns a transport for self.
func DialNATS(url, prefix string, self domain.Username, log zerolog.Logger) (*NATS, error) {
	if !ValidSubjectToken(self.String()) {
		return nil, fmt.Errorf("user id %q is not a valid subject token", self)
	}
	t := newNATS(prefix, self, true, log)
	opts := []nats.Option{
		nats.Name("parley-" + self.String()),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			t.log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			t.log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) { t.shutdown() }),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := t.start(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

// NewNATS returns a transport for self over an existing connection. Close
// unsubscribes but leaves conn open.
func NewNATS(conn *nats.Conn, prefix string, self domain.Username, log zerolog.Logger) (*NATS, error) {
	if !ValidSubjectToken(self.String()) {
		return nil, fmt.Errorf("user id %q is not a valid subject token", self)
	}
	t := newNATS(prefix, self, false, log)
	if err := t.start(conn); err != nil {
		return nil, err
	}
	return t, nil
}

func newNATS(prefix string, self domain.Username, owned bool, log zerolog.Logger) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{
		self:    self,
		prefix:  prefix,
		owned:   owned,
		log:     log.With().Str("component", "nats-transport").Str("self", self.String()).Logger(),
		inbound: make(chan domain.Envelope, inboundQueueSize),
	}
}

// start subscribes on conn. It fails if the transport was shut down first.
func (t *NATS) start(conn *nats.Conn) error {
	t.conn = conn
	subject := InboundSubject(t.prefix, t.self)
	sub, err := conn.Subscribe(subject, t.onMsg)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = sub.Unsubscribe()
		return ErrTransportClosed
	}
	t.sub = sub
	t.mu.Unlock()
	if err := conn.Flush(); err != nil {
		t.shutdown()
		return fmt.Errorf("flush subscription: %w", err)
	}
	t.log.Debug().Str("subject", subject).Msg("subscribed")
	return nil
}

func (t *NATS) onMsg(msg *nats.Msg) {
	var env domain.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		t.log.Debug().Err(err).Msg("dropping malformed message")
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.inbound <- env:
	default:
		t.log.Warn().Str("subject", msg.Subject).Msg("inbound queue full, dropping message")
	}
}

// Send publishes env on the outbound subject.
func (t *NATS) Send(_ context.Context, env domain.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTransportClosed
	}
	return t.conn.Publish(OutboundSubject(t.prefix, t.self), data)
}

// Receive yields inbound envelopes until Close or the connection closes.
func (t *NATS) Receive() <-chan domain.Envelope { return t.inbound }

// Close unsubscribes and, for dialled transports, closes the connection.
func (t *NATS) Close() error {
	t.shutdown()
	if t.owned && t.conn != nil {
		t.conn.Close()
	}
	return nil
}

func (t *NATS) shutdown() {
	t.once.Do(func() {
		t.mu.Lock()
		t.closed = true
		sub := t.sub
		close(t.inbound)
		t.mu.Unlock()
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	})
}

var _ domain.Transport = (*NATS)(nil)
