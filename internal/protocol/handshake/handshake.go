package handshake

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/session"
)

// Phase is the handshake state.
type Phase int

const (
	Init Phase = iota
	KeysReady
	Secure
)

// String returns a lower-case label for logs.
func (p Phase) String() string {
	switch p {
	case Init:
		return "init"
	case KeysReady:
		return "keys_ready"
	case Secure:
		return "secure"
	default:
		return "unknown"
	}
}

var (
	// ErrKeysNotReady is returned when a key exchange arrives before Start.
	ErrKeysNotReady = errors.New("own keys not generated yet")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("handshake already started")
)

// Controller drives the two-message key exchange for one session.
//
// Once Secure, further key exchanges are ignored and the first derived
// secret stays in use. Controller is NOT safe for concurrent use; it shares
// the session's single message-handling flow.
type Controller struct {
	engine *crypto.Engine
	state  *session.State
	out    domain.Sender
	status domain.StatusSink
	log    zerolog.Logger
	phase  Phase
}

// New returns a Controller in Init.
func New(
	engine *crypto.Engine,
	state *session.State,
	out domain.Sender,
	status domain.StatusSink,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		engine: engine,
		state:  state,
		out:    out,
		status: status,
		log:    log.With().Str("component", "handshake").Str("peer", state.Peer().String()).Logger(),
		phase:  Init,
	}
}

// Phase returns the current handshake state.
func (c *Controller) Phase() Phase { return c.phase }

// Start generates the session keypair and offers our public key to the
// peer. It is the channel-open transition.
func (c *Controller) Start(ctx context.Context) error {
	if c.phase != Init {
		return ErrAlreadyStarted
	}
	c.status.Info("Generating your encryption keys...")
	kp, err := c.engine.GenerateKeyPair()
	if err != nil {
		c.status.Error("Error generating keys", err)
		return err
	}
	if err := c.state.SetOwnKeys(kp); err != nil {
		return err
	}
	c.phase = KeysReady
	c.log.Debug().Str("fingerprint", crypto.Fingerprint(kp.Public).String()).Msg("keypair generated")
	c.status.Info("Key generation complete.")
	return c.sendPublicKey(ctx, kp, false)
}

// HandleKeyExchange processes a key_exchange envelope. Envelopes not from the
// configured peer, or without a public key, are dropped without any effect.
func (c *Controller) HandleKeyExchange(ctx context.Context, env domain.Envelope) error {
	if env.Type != domain.EnvelopeKeyExchange || env.Sender != c.state.Peer() || env.PublicKey == nil {
		c.log.Debug().Str("sender", env.Sender.String()).Msg("dropping key exchange")
		return nil
	}

	switch c.phase {
	case Init:
		return ErrKeysNotReady
	case Secure:
		c.ignoreRekey(env)
		return nil
	}

	kp, ok := c.state.OwnKeys()
	if !ok {
		return ErrKeysNotReady
	}

	c.status.Info("Received public key. Deriving shared secret...")
	peerKey, err := c.engine.ImportPeerKey(*env.PublicKey)
	if err != nil {
		c.status.Error("Error importing peer key. Communication will not be secure.", err)
		return err
	}
	secret, err := c.engine.DeriveSharedSecret(kp.Private, peerKey)
	if err != nil {
		c.status.Error("Error deriving shared secret. Communication will not be secure.", err)
		return err
	}
	if err := c.state.SetSharedSecret(peerKey, secret); err != nil {
		return fmt.Errorf("store shared secret: %w", err)
	}
	c.phase = Secure
	c.log.Info().
		Str("peer_fingerprint", crypto.Fingerprint(peerKey.Key).String()).
		Bool("is_reply", env.IsReply).
		Msg("session secure")
	c.status.Info("Secure connection established. You can now chat safely.")

	// Only answer a first offer; answering a reply would loop forever.
	if env.IsReply {
		return nil
	}
	return c.sendPublicKey(ctx, kp, true)
}

func (c *Controller) ignoreRekey(env domain.Envelope) {
	current, _ := c.state.PeerKey()
	offered, err := c.engine.ImportPeerKey(*env.PublicKey)
	if err == nil && offered.Equal(current) {
		c.log.Debug().Bool("is_reply", env.IsReply).Msg("duplicate key exchange ignored")
		return
	}
	c.log.Warn().Bool("is_reply", env.IsReply).Msg("key exchange after session became secure ignored")
	c.status.Warn(fmt.Sprintf("%s offered a different key after the session was secured; keeping the original key", c.state.Peer()))
}

func (c *Controller) sendPublicKey(ctx context.Context, kp domain.KeyPair, isReply bool) error {
	jwk, err := c.engine.ExportPublicKey(kp)
	if err != nil {
		c.status.Error("Error exporting public key", err)
		return err
	}
	c.status.Info(fmt.Sprintf("Sending public key to %s (fingerprint %s)", c.state.Peer(), crypto.Fingerprint(kp.Public)))
	if err := c.out.Send(ctx, domain.NewKeyExchange(c.state.Peer(), jwk, isReply)); err != nil {
		c.status.Error("Error sending public key", err)
		return err
	}
	return nil
}
