package session

import (
	"errors"

	"parley/internal/domain"
	"parley/internal/util/memzero"
)

var (
	// ErrChannelNotSecure is returned for sends or receives attempted before
	// the handshake completed.
	ErrChannelNotSecure = errors.New("channel not secure")
	// ErrKeysAlreadySet guards the once-per-session keypair.
	ErrKeysAlreadySet = errors.New("session keypair already generated")
	// ErrAlreadySecure is returned when a second shared secret is offered.
	// The first secret stays in place.
	ErrAlreadySecure = errors.New("session already secure")
	// ErrClosed is returned once the session's key material was discarded.
	ErrClosed = errors.New("session closed")
)

// State is the per-conversation key and security state.
//
// State is NOT safe for concurrent use. It is owned by the single
// message-handling flow of one channel connection.
type State struct {
	self domain.Username
	peer domain.Username

	keys    *domain.KeyPair
	peerKey *domain.PeerPublicKey
	secret  *domain.SharedSecret
	status  domain.SecurityStatus
	closed  bool
}

// New returns an insecure State for a conversation between self and peer.
func New(self, peer domain.Username) *State {
	return &State{self: self, peer: peer, status: domain.Insecure}
}

// Self returns our own id.
func (s *State) Self() domain.Username { return s.self }

// Peer returns the configured peer id.
func (s *State) Peer() domain.Username { return s.peer }

// SetOwnKeys stores the session keypair. It may only be called once.
func (s *State) SetOwnKeys(kp domain.KeyPair) error {
	if s.closed {
		return ErrClosed
	}
	if s.keys != nil {
		return ErrKeysAlreadySet
	}
	s.keys = &kp
	return nil
}

// OwnKeys returns the session keypair, if generated.
func (s *State) OwnKeys() (domain.KeyPair, bool) {
	if s.keys == nil {
		return domain.KeyPair{}, false
	}
	return *s.keys, true
}

// SetSharedSecret stores the derived key and the peer key it came from, and
// moves the session to Secure. Only the first call has any effect.
func (s *State) SetSharedSecret(peerKey domain.PeerPublicKey, secret domain.SharedSecret) error {
	if s.closed {
		return ErrClosed
	}
	if s.status == domain.Secure {
		return ErrAlreadySecure
	}
	s.peerKey = &peerKey
	s.secret = &secret
	s.status = domain.Secure
	return nil
}

// SharedSecret returns the AEAD key. The pointer aliases State's copy and
// goes stale on Close.
func (s *State) SharedSecret() (*domain.SharedSecret, bool) {
	if s.closed || s.secret == nil {
		return nil, false
	}
	return s.secret, true
}

// PeerKey returns the peer public key the secret was derived from.
func (s *State) PeerKey() (domain.PeerPublicKey, bool) {
	if s.peerKey == nil {
		return domain.PeerPublicKey{}, false
	}
	return *s.peerKey, true
}

// Status returns the security status.
func (s *State) Status() domain.SecurityStatus { return s.status }

// IsSecure reports whether messages may be encrypted and decrypted.
func (s *State) IsSecure() bool { return !s.closed && s.status == domain.Secure }

// Close discards all key material. It is safe to call more than once.
func (s *State) Close() {
	if s.secret != nil {
		memzero.Zero(s.secret.Slice())
		s.secret = nil
	}
	s.keys = nil
	s.peerKey = nil
	s.closed = true
}

// Closed reports whether Close was called.
func (s *State) Closed() bool { return s.closed }
