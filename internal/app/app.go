package app

import (
	"context"
	"errors"
	"strings"

	"parley/internal/domain"
	"parley/internal/services/conversation"
)

// Sinks receives everything a chat session reports.
type Sinks interface {
	domain.MessageSink
	domain.StatusSink
}

// App runs one chat session for the CLI.
type App struct {
	wire  *Wire
	sinks Sinks
}

// New returns an App over wire reporting to sinks.
func New(wire *Wire, sinks Sinks) *App {
	return &App{wire: wire, sinks: sinks}
}

// Chat dials the relay, runs the session and feeds it lines from input
// until input closes, the session ends, or ctx is cancelled.
func (a *App) Chat(ctx context.Context, input <-chan string) error {
	tr, err := a.wire.Dial(ctx)
	if err != nil {
		return err
	}
	a.sinks.Info("Connected to relay as " + a.wire.Config.Self + ". Waiting for " + a.wire.Config.Peer + "...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sess := a.wire.NewSession(tr, a.sinks, a.sinks)
	errc := make(chan error, 1)
	go func() { errc <- sess.Run(ctx) }()

	for {
		select {
		case line, ok := <-input:
			if !ok {
				cancel()
				return <-errc
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			select {
			case <-sess.Ready():
			default:
				a.sinks.Warn("Secure channel not established yet; message not sent.")
				continue
			}
			err := sess.Send(ctx, line)
			switch {
			case errors.Is(err, conversation.ErrSessionClosed), errors.Is(err, context.Canceled):
				return <-errc
			case err != nil:
				return err
			}
		case err := <-errc:
			return err
		}
	}
}
