package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"parley/internal/domain"
)

const memoryQueueSize = 256

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("transport closed")

// Memory is an in-process relay. It applies the same forwarding rules as
// the network relay and is used for tests and local demos.
type Memory struct {
	mu    sync.Mutex
	conns map[domain.Username]*MemoryTransport
	log   zerolog.Logger
}

// NewMemory returns an empty in-process relay.
func NewMemory(log zerolog.Logger) *Memory {
	return &Memory{
		conns: make(map[domain.Username]*MemoryTransport),
		log:   log.With().Str("component", "memory-relay").Logger(),
	}
}

// Connect opens a channel for user. An existing channel for the same user
// is closed and replaced.
func (m *Memory) Connect(user domain.Username) *MemoryTransport {
	t := &MemoryTransport{
		relay:   m,
		self:    user,
		inbound: make(chan domain.Envelope, memoryQueueSize),
		done:    make(chan struct{}),
	}
	m.mu.Lock()
	old := m.conns[user]
	m.conns[user] = t
	m.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return t
}

// Online reports whether user has an open channel.
func (m *Memory) Online(user domain.Username) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.conns[user]
	return ok
}

func (m *Memory) forward(from domain.Username, env domain.Envelope) error {
	deliveries, err := Route(from, env)
	if err != nil {
		m.log.Debug().Err(err).Str("sender", from.String()).Msg("dropping envelope")
		return nil
	}
	for _, d := range deliveries {
		m.mu.Lock()
		dst := m.conns[d.To]
		m.mu.Unlock()
		if dst == nil {
			m.log.Debug().Str("to", d.To.String()).Msg("recipient offline")
			continue
		}
		if !dst.enqueue(d.Envelope) {
			m.log.Warn().Str("to", d.To.String()).Bool("echo", d.Echo).Msg("queue full or closed, dropping envelope")
		}
	}
	return nil
}

func (m *Memory) drop(t *MemoryTransport) {
	m.mu.Lock()
	if m.conns[t.self] == t {
		delete(m.conns, t.self)
	}
	m.mu.Unlock()
}

// MemoryTransport is one user's channel to a Memory relay.
type MemoryTransport struct {
	relay *Memory
	self  domain.Username

	mu      sync.RWMutex
	closed  bool
	inbound chan domain.Envelope
	done    chan struct{}
	once    sync.Once
}

// Send hands env to the relay.
func (t *MemoryTransport) Send(_ context.Context, env domain.Envelope) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	return t.relay.forward(t.self, env)
}

// Receive yields inbound envelopes until the channel closes.
func (t *MemoryTransport) Receive() <-chan domain.Envelope { return t.inbound }

// Close closes the channel; Receive's channel is closed afterwards.
func (t *MemoryTransport) Close() error {
	t.once.Do(func() {
		close(t.done)
		t.relay.drop(t)
		t.mu.Lock()
		t.closed = true
		close(t.inbound)
		t.mu.Unlock()
	})
	return nil
}

// enqueue never blocks; env is dropped when the queue is full.
func (t *MemoryTransport) enqueue(env domain.Envelope) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}
	select {
	case t.inbound <- env:
		return true
	default:
		return false
	}
}

var _ domain.Transport = (*MemoryTransport)(nil)
