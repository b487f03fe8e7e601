package commands

import (
	"os"

	"github.com/spf13/cobra"

	"parley/internal/app"
)

var (
	configPath string
	cfg        app.Config
	wire       *app.Wire

	flagSelf      string
	flagPeer      string
	flagRelay     string
	flagTransport string
	flagSuite     string
	flagKDF       string
	flagLogLevel  string
)

func Execute() error {
	root := &cobra.Command{
		Use:          "parley",
		Short:        "End-to-end encrypted two-party chat over an untrusted relay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				p, err := app.DefaultPath()
				if err != nil {
					return err
				}
				configPath = p
			}
			loaded, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = applyFlags(cmd, loaded)
			wire, err = app.NewWire(cfg, os.Stderr)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.parley/config.yaml)")
	pf.StringVar(&flagSelf, "as", "", "your user id")
	pf.StringVar(&flagPeer, "peer", "", "peer user id")
	pf.StringVar(&flagRelay, "relay", "", "relay base URL (e.g. ws://127.0.0.1:8080), or NATS URL with --transport nats")
	pf.StringVar(&flagTransport, "transport", "", "transport: websocket or nats")
	pf.StringVar(&flagSuite, "suite", "", "AEAD suite: aes-256-gcm or chacha20-poly1305")
	pf.StringVar(&flagKDF, "kdf", "", "key derivation: hkdf-sha256 or raw")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(chatCmd(), presenceCmd(), configCmd())
	return root.Execute()
}

// applyFlags overlays explicitly set flags on c.
func applyFlags(cmd *cobra.Command, c app.Config) app.Config {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("as") {
		c.Self = flagSelf
	}
	if set("peer") {
		c.Peer = flagPeer
	}
	if set("transport") {
		c.Transport.Kind = flagTransport
	}
	if set("relay") {
		if c.Transport.Kind == app.TransportNATS {
			c.Transport.NATSURL = flagRelay
		} else {
			c.Transport.URL = flagRelay
		}
	}
	if set("suite") {
		c.Crypto.Suite = flagSuite
	}
	if set("kdf") {
		c.Crypto.KDF = flagKDF
	}
	if set("log-level") {
		c.Log.Level = flagLogLevel
	}
	return c
}
