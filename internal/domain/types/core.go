package types

// Username identifies a peer on the relay. It is fixed for the lifetime of a
// session.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// EnvelopeType discriminates the envelope variants on the wire.
type EnvelopeType string

const (
	EnvelopeKeyExchange   EnvelopeType = "key_exchange"
	EnvelopeEncryptedText EnvelopeType = "encrypted_text"
)

// String returns the wire form of the type tag.
func (t EnvelopeType) String() string { return string(t) }

// Known reports whether t is one of the envelope variants we understand.
func (t EnvelopeType) Known() bool {
	switch t {
	case EnvelopeKeyExchange, EnvelopeEncryptedText:
		return true
	}
	return false
}
