package conversation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/protocol/handshake"
	"parley/internal/router"
	"parley/internal/session"
)

var (
	// ErrSessionClosed is returned by Send once the session has ended.
	ErrSessionClosed = errors.New("session closed")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("session already running")
)

type sendRequest struct {
	ctx  context.Context
	text string
	done chan error
}

// Session is the per-connection context: one peer, one keypair, one derived
// key, and the loop that serialises everything touching them.
type Session struct {
	id        uuid.UUID
	state     *session.State
	handshake *handshake.Controller
	router    *router.Router
	transport domain.Transport
	status    domain.StatusSink
	log       zerolog.Logger

	sends     chan sendRequest
	ready     chan struct{}
	readyOnce sync.Once
	closed    chan struct{}
	running   atomic.Bool
}

// New builds a Session for self talking to peer over transport. The
// session takes ownership of transport and closes it when Run returns.
func New(
	engine *crypto.Engine,
	self, peer domain.Username,
	transport domain.Transport,
	messages domain.MessageSink,
	status domain.StatusSink,
	log zerolog.Logger,
) *Session {
	id := uuid.New()
	l := log.With().Str("session", id.String()).Logger()
	st := session.New(self, peer)
	hs := handshake.New(engine, st, transport, status, l)
	return &Session{
		id:        id,
		state:     st,
		handshake: hs,
		router:    router.New(engine, st, hs, transport, messages, status, l),
		transport: transport,
		status:    status,
		log:       l.With().Str("component", "conversation").Logger(),
		sends:     make(chan sendRequest),
		ready:     make(chan struct{}),
		closed:    make(chan struct{}),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() uuid.UUID { return s.id }

// Ready is closed once the session becomes secure.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Done is closed once Run has returned and key material is wiped.
func (s *Session) Done() <-chan struct{} { return s.closed }

// Run starts the key exchange and processes envelopes and sends until the
// transport closes or ctx is cancelled. It returns nil on a normal close.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.teardown()

	s.log.Info().
		Str("self", s.state.Self().String()).
		Str("peer", s.state.Peer().String()).
		Msg("session open")
	if err := s.handshake.Start(ctx); err != nil {
		if s.handshake.Phase() == handshake.Init {
			return err
		}
		// Keys exist; the peer's offer can still complete the exchange.
		s.log.Warn().Err(err).Msg("initial key offer not sent")
	}

	inbound := s.transport.Receive()
	for {
		select {
		case env, ok := <-inbound:
			if !ok {
				s.status.Info("Disconnected from relay.")
				return nil
			}
			if err := s.router.Handle(ctx, env); err != nil {
				s.log.Debug().Err(err).Str("type", env.Type.String()).Msg("envelope not processed")
			}
			s.markReady()
		case req := <-s.sends:
			req.done <- s.router.SendPlaintext(req.ctx, req.text)
		case <-ctx.Done():
			return nil
		}
	}
}

// Send encrypts text and sends it to the peer. While the session is not yet
// secure, or for blank text, it is a no-op returning nil.
func (s *Session) Send(ctx context.Context, text string) error {
	req := sendRequest{ctx: ctx, text: text, done: make(chan error, 1)}
	select {
	case s.sends <- req:
	case <-s.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.done
}

func (s *Session) markReady() {
	if s.state.IsSecure() {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

func (s *Session) teardown() {
	s.state.Close()
	if err := s.transport.Close(); err != nil {
		s.log.Debug().Err(err).Msg("closing transport")
	}
	s.log.Info().Msg("session closed, key material wiped")
	close(s.closed)
}
