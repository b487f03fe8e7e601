package router

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/protocol/handshake"
	"parley/internal/session"
)

type handlerFunc func(ctx context.Context, env domain.Envelope) error

// Router classifies inbound envelopes and owns the outbound plaintext path.
//
// Router is NOT safe for concurrent use; calls must be serialised per
// session.
type Router struct {
	engine    *crypto.Engine
	state     *session.State
	handshake *handshake.Controller
	out       domain.Sender
	messages  domain.MessageSink
	status    domain.StatusSink
	log       zerolog.Logger

	handlers map[domain.EnvelopeType]handlerFunc
}

// New returns a Router for one session.
func New(
	engine *crypto.Engine,
	state *session.State,
	hs *handshake.Controller,
	out domain.Sender,
	messages domain.MessageSink,
	status domain.StatusSink,
	log zerolog.Logger,
) *Router {
	r := &Router{
		engine:    engine,
		state:     state,
		handshake: hs,
		out:       out,
		messages:  messages,
		status:    status,
		log:       log.With().Str("component", "router").Logger(),
	}
	r.handlers = map[domain.EnvelopeType]handlerFunc{
		domain.EnvelopeKeyExchange:   r.handleKeyExchange,
		domain.EnvelopeEncryptedText: r.handleEncryptedText,
	}
	return r
}

// Handle processes one inbound envelope. Unknown types and envelopes from
// anyone other than the peer are dropped silently and return nil. Locally
// recovered failures are reported to the status sink and also returned.
func (r *Router) Handle(ctx context.Context, env domain.Envelope) error {
	h, ok := r.handlers[env.Type]
	if !ok {
		r.log.Debug().Str("type", env.Type.String()).Msg("dropping unknown envelope type")
		return nil
	}
	return h(ctx, env)
}

func (r *Router) handleKeyExchange(ctx context.Context, env domain.Envelope) error {
	if env.Sender != r.state.Peer() || env.PublicKey == nil {
		r.log.Debug().Str("sender", env.Sender.String()).Msg("dropping key exchange")
		return nil
	}
	return r.handshake.HandleKeyExchange(ctx, env)
}

func (r *Router) handleEncryptedText(_ context.Context, env domain.Envelope) error {
	origin, ok := r.classify(env)
	if !ok {
		r.log.Debug().Str("sender", env.Sender.String()).Msg("dropping encrypted text")
		return nil
	}
	if !r.state.IsSecure() {
		r.status.Error("Cannot decrypt message", session.ErrChannelNotSecure)
		return session.ErrChannelNotSecure
	}
	if env.Content == nil {
		r.status.Error("Failed to decrypt message. It may be corrupted or tampered with.", crypto.ErrAuthentication)
		return crypto.ErrAuthentication
	}
	key, _ := r.state.SharedSecret()
	plain, err := r.engine.Decrypt(key, env.Content.IV, env.Content.Ciphertext)
	if err != nil {
		r.status.Error("Failed to decrypt message. It may be corrupted or tampered with.", err)
		return err
	}
	r.messages.Deliver(domain.DeliveredMessage{
		Origin:    origin,
		Peer:      r.state.Peer(),
		Plaintext: plain,
	})
	return nil
}

// classify accepts a message from the peer, or the relay's echo of one of
// ours. An echo carries no sender (or our own id) and names the peer as its
// target.
func (r *Router) classify(env domain.Envelope) (domain.Origin, bool) {
	peer := r.state.Peer()
	if env.Sender == peer {
		return domain.FromPeer, true
	}
	if env.Sender != "" && env.Sender != r.state.Self() {
		return 0, false
	}
	if env.Recipient == peer || (env.Recipient == "" && env.TargetUser == peer) {
		return domain.Echo, true
	}
	return 0, false
}

// SendPlaintext encrypts text and sends it to the peer. It is a silent no-op
// while the session is insecure or when text is blank.
func (r *Router) SendPlaintext(ctx context.Context, text string) error {
	if !r.state.IsSecure() {
		r.log.Debug().Msg("send skipped: channel not secure")
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	key, _ := r.state.SharedSecret()
	payload, err := r.engine.Encrypt(key, []byte(text))
	if err != nil {
		r.status.Error("Cannot send message", err)
		return err
	}
	if err := r.out.Send(ctx, domain.NewEncryptedText(r.state.Peer(), payload)); err != nil {
		r.status.Error("Cannot send message", err)
		return err
	}
	return nil
}
