package types

import "crypto/ecdh"

// KeyPair is the session's own P-256 ECDH keypair. The private half never
// leaves the process.
type KeyPair struct {
	Private *ecdh.PrivateKey
	Public  *ecdh.PublicKey
}

// String keeps private material out of formatted output.
func (k KeyPair) String() string { return "KeyPair(P-256, private redacted)" }

// PeerPublicKey is the peer's imported public point. It is accepted at face
// value from any envelope labelled with the configured peer id.
type PeerPublicKey struct {
	Key *ecdh.PublicKey
}

// Equal reports whether both keys hold the same point.
func (p PeerPublicKey) Equal(o PeerPublicKey) bool {
	if p.Key == nil || o.Key == nil {
		return p.Key == o.Key
	}
	return p.Key.Equal(o.Key)
}

// SharedSecretSize is the AEAD key length in bytes.
const SharedSecretSize = 32

// SharedSecret is the derived 256-bit AEAD key.
type SharedSecret [SharedSecretSize]byte

// Slice returns the key as a []byte aliasing the array.
func (s *SharedSecret) Slice() []byte { return s[:] }

// String keeps the key out of formatted output.
func (s SharedSecret) String() string { return "SharedSecret(redacted)" }

// JWK is the JSON Web Key form of an EC public key, as exported by WebCrypto.
type JWK struct {
	Kty    string   `json:"kty"`
	Crv    string   `json:"crv"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
	Ext    bool     `json:"ext,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
}
