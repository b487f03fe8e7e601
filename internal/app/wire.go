package app

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/logging"
	"parley/internal/relay"
	"parley/internal/relay/server"
	"parley/internal/services/conversation"
)

// Wire bundles the logger, crypto engine and relay clients built from a
// Config.
type Wire struct {
	Config Config
	Log    zerolog.Logger
	Engine *crypto.Engine
	Relay  *relay.HTTP
}

// NewWire constructs the dependency graph from cfg. Logs go to logOut.
func NewWire(cfg Config, logOut io.Writer) (*Wire, error) {
	log, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	engine, err := crypto.NewEngine(crypto.Suite(cfg.Crypto.Suite), crypto.KDF(cfg.Crypto.KDF))
	if err != nil {
		return nil, err
	}
	return &Wire{
		Config: cfg,
		Log:    log,
		Engine: engine,
		Relay:  relay.NewHTTP(cfg.Transport.URL),
	}, nil
}

// Dial opens the configured transport as cfg.Self.
func (w *Wire) Dial(ctx context.Context) (domain.Transport, error) {
	self := domain.Username(w.Config.Self)
	t := w.Config.Transport
	switch t.Kind {
	case TransportWebSocket:
		return relay.DialWebSocket(ctx, t.URL, self, w.Log)
	case TransportNATS:
		return relay.DialNATS(t.NATSURL, t.SubjectPrefix, self, w.Log)
	default:
		return nil, fmt.Errorf("unknown transport %q", t.Kind)
	}
}

// NewSession builds a conversation over tr with the given sinks.
func (w *Wire) NewSession(tr domain.Transport, messages domain.MessageSink, status domain.StatusSink) *conversation.Session {
	return conversation.New(
		w.Engine,
		domain.Username(w.Config.Self),
		domain.Username(w.Config.Peer),
		tr,
		messages,
		status,
		w.Log,
	)
}

// NewRelayServer builds the relay server from the relay section.
func (w *Wire) NewRelayServer() *server.Server {
	r := w.Config.Relay
	return server.New(server.Config{
		Listen:        r.Listen,
		NATSURL:       r.NATSURL,
		SubjectPrefix: r.SubjectPrefix,
		Metrics:       r.Metrics,
	}, w.Log)
}
