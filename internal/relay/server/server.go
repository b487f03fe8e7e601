package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Config selects what the relay serves.
type Config struct {
	Listen        string
	NATSURL       string
	SubjectPrefix string
	Metrics       bool
}

// Server runs the hub over HTTP and, when NATSURL is set, the NATS bridge.
type Server struct {
	cfg     Config
	hub     *Hub
	metrics *Metrics
	log     zerolog.Logger
}

// New returns a Server; nothing listens until Run.
func New(cfg Config, log zerolog.Logger) *Server {
	m := NewMetrics()
	return &Server{
		cfg:     cfg,
		hub:     NewHub(m, log),
		metrics: m,
		log:     log.With().Str("component", "relay-server").Logger(),
	}
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the HTTP routes: the hub endpoints and, if enabled, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.hub.Register(mux)
	if s.cfg.Metrics {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.NATSURL != "" {
		nc, err := nats.Connect(s.cfg.NATSURL,
			nats.Name("parley-relay"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				s.log.Warn().Err(err).Msg("NATS disconnected")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				s.log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer nc.Close()
		bridge := NewBridge(nc, s.cfg.SubjectPrefix, s.metrics, s.log)
		if err := bridge.Start(); err != nil {
			return err
		}
		defer func() { _ = bridge.Stop() }()
	}

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("listen", s.cfg.Listen).Bool("metrics", s.cfg.Metrics).Msg("relay listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.hub.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.hub.Close()
	s.log.Info().Msg("relay stopped")
	return err
}
