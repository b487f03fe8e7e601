package server

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"parley/internal/domain"
	"parley/internal/relay"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge relays envelopes between NATS clients: it consumes
// <prefix>.out.* and republishes on <prefix>.in.<user>. The user id in the
// subject is the authenticated sender; subject permissions on the NATS
// server are expected to pin each client to its own outbound subject.
type Bridge struct {
	conn    *nats.Conn
	pub     publisher
	prefix  string
	metrics *Metrics
	log     zerolog.Logger
	sub     *nats.Subscription
}

// NewBridge returns a bridge over conn. Start must be called to subscribe.
func NewBridge(conn *nats.Conn, prefix string, metrics *Metrics, log zerolog.Logger) *Bridge {
	if prefix == "" {
		prefix = relay.DefaultSubjectPrefix
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Bridge{
		conn:    conn,
		pub:     conn,
		prefix:  prefix,
		metrics: metrics,
		log:     log.With().Str("component", "nats-bridge").Logger(),
	}
}

// Start subscribes to every user's outbound subject.
func (b *Bridge) Start() error {
	subject := b.prefix + ".out.*"
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		b.handle(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.sub = sub
	b.log.Info().Str("subject", subject).Msg("bridge subscribed")
	return nil
}

// Stop unsubscribes; the connection stays open.
func (b *Bridge) Stop() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

func (b *Bridge) handle(subject string, data []byte) {
	sender, ok := relay.SenderFromSubject(b.prefix, subject)
	if !ok {
		b.metrics.drop(DropInvalid)
		return
	}
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.metrics.drop(DropMalformed)
		b.log.Debug().Err(err).Str("sender", sender.String()).Msg("dropping malformed message")
		return
	}
	deliveries, err := relay.Route(sender, env)
	if err != nil {
		b.metrics.drop(DropInvalid)
		b.log.Debug().Err(err).Str("sender", sender.String()).Msg("dropping envelope")
		return
	}
	for _, d := range deliveries {
		if !relay.ValidSubjectToken(d.To.String()) {
			b.metrics.drop(DropInvalid)
			continue
		}
		out, err := json.Marshal(d.Envelope)
		if err != nil {
			b.metrics.drop(DropMalformed)
			continue
		}
		if err := b.pub.Publish(relay.InboundSubject(b.prefix, d.To), out); err != nil {
			b.log.Warn().Err(err).Str("to", d.To.String()).Msg("publish failed")
			continue
		}
		if !d.Echo {
			b.metrics.forward(env.Type)
		}
	}
}
