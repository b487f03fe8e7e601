package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parley/internal/app"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		natsURL    string
		prefix     string
		metrics    bool
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Relay for parley chat clients",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				p, err := app.DefaultPath()
				if err != nil {
					return err
				}
				configPath = p
			}
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("listen") {
				cfg.Relay.Listen = listen
			}
			if f.Changed("nats") {
				cfg.Relay.NATSURL = natsURL
			}
			if f.Changed("subject-prefix") {
				cfg.Relay.SubjectPrefix = prefix
			}
			if f.Changed("metrics") {
				cfg.Relay.Metrics = metrics
			}
			if f.Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if err := cfg.ValidateRelay(); err != nil {
				return err
			}

			wire, err := app.NewWire(cfg, os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return wire.NewRelayServer().Run(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "config file (default ~/.parley/config.yaml)")
	f.StringVar(&listen, "listen", "", "listen address (default :8080)")
	f.StringVar(&natsURL, "nats", "", "NATS URL; enables the NATS bridge")
	f.StringVar(&prefix, "subject-prefix", "", "NATS subject prefix (default parley)")
	f.BoolVar(&metrics, "metrics", true, "serve Prometheus metrics at /metrics")
	f.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}
