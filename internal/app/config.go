package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"parley/internal/crypto"
	"parley/internal/logging"
	"parley/internal/relay"
)

// Transport kinds.
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// Config is the on-disk configuration, shared by the client and the relay.
type Config struct {
	Self      string          `yaml:"self"`
	Peer      string          `yaml:"peer"`
	Transport TransportConfig `yaml:"transport"`
	Crypto    CryptoConfig    `yaml:"crypto"`
	Log       logging.Config  `yaml:"log"`
	Relay     RelayConfig     `yaml:"relay"`
}

// TransportConfig selects how the client reaches the relay.
type TransportConfig struct {
	Kind          string `yaml:"kind"`
	URL           string `yaml:"url"`      // relay base URL, e.g. ws://127.0.0.1:8080
	NATSURL       string `yaml:"nats_url"` // e.g. nats://127.0.0.1:4222
	SubjectPrefix string `yaml:"subject_prefix"`
}

// CryptoConfig picks the AEAD suite and key derivation.
type CryptoConfig struct {
	Suite string `yaml:"suite"`
	KDF   string `yaml:"kdf"`
}

// RelayConfig is read by the relay binary only.
type RelayConfig struct {
	Listen        string `yaml:"listen"`
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Metrics       bool   `yaml:"metrics"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Transport: TransportConfig{
			Kind:          TransportWebSocket,
			URL:           "ws://127.0.0.1:8080",
			NATSURL:       "nats://127.0.0.1:4222",
			SubjectPrefix: relay.DefaultSubjectPrefix,
		},
		Crypto: CryptoConfig{
			Suite: string(crypto.SuiteAES256GCM),
			KDF:   string(crypto.KDFHKDFSHA256),
		},
		Log: logging.Config{
			Level:  "info",
			Format: logging.FormatConsole,
			Mask:   true,
		},
		Relay: RelayConfig{
			Listen:        ":8080",
			SubjectPrefix: relay.DefaultSubjectPrefix,
			Metrics:       true,
		},
	}
}

// DefaultPath is $HOME/.parley/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".parley", "config.yaml"), nil
}

// LoadConfig reads path over the defaults. A missing file is not an error.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings the chat client needs.
func (c Config) Validate() error {
	if c.Self == "" {
		return errors.New("own user id required (self / --as)")
	}
	if c.Peer == "" {
		return errors.New("peer user id required (peer / --peer)")
	}
	if c.Self == c.Peer {
		return errors.New("self and peer must differ")
	}
	if _, err := crypto.NewEngine(crypto.Suite(c.Crypto.Suite), crypto.KDF(c.Crypto.KDF)); err != nil {
		return err
	}
	switch c.Transport.Kind {
	case TransportWebSocket:
		if c.Transport.URL == "" {
			return errors.New("transport.url required for websocket")
		}
	case TransportNATS:
		if c.Transport.NATSURL == "" {
			return errors.New("transport.nats_url required for nats")
		}
		if !relay.ValidSubjectToken(c.Self) || !relay.ValidSubjectToken(c.Peer) {
			return errors.New("user ids must not contain '.', '*', '>' or whitespace with nats")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport.Kind)
	}
	return c.Log.Validate()
}

// ValidateRelay checks the settings the relay binary needs.
func (c Config) ValidateRelay() error {
	if c.Relay.Listen == "" {
		return errors.New("relay.listen required")
	}
	return c.Log.Validate()
}
