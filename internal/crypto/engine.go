package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"parley/internal/domain"
	"parley/internal/util/memzero"
)

// NonceBytes is the AEAD nonce length for every suite.
const NonceBytes = 12

var (
	ErrKeyGeneration  = errors.New("key generation failed")
	ErrKeyImport      = errors.New("peer key import failed")
	ErrDerivation     = errors.New("shared secret derivation failed")
	ErrEncryption     = errors.New("encryption failed")
	ErrAuthentication = errors.New("message authentication failed")
)

// Suite names an AEAD construction keyed by the 256-bit shared secret.
type Suite string

const (
	SuiteAES256GCM        Suite = "aes-256-gcm"
	SuiteChaCha20Poly1305 Suite = "chacha20-poly1305"
)

// KDF names how the raw ECDH output becomes the AEAD key.
type KDF string

const (
	// KDFHKDFSHA256 runs HKDF-SHA256 with a suite-bound info label.
	KDFHKDFSHA256 KDF = "hkdf-sha256"
	// KDFRaw uses the ECDH x-coordinate directly, as WebCrypto's
	// deriveKey(ECDH -> AES-GCM-256) does.
	KDFRaw KDF = "raw"
)

const hkdfInfoPrefix = "parley/v1 session key "

// Engine performs the key agreement and per-message AEAD for one suite. The
// curve is P-256 for the whole system.
type Engine struct {
	suite Suite
	kdf   KDF
	curve ecdh.Curve
	rand  io.Reader
}

// Option customises an Engine.
type Option func(*Engine)

// WithRand replaces the CSPRNG. Only tests should use it.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// NewEngine returns an Engine for suite and kdf.
func NewEngine(suite Suite, kdf KDF, opts ...Option) (*Engine, error) {
	switch suite {
	case SuiteAES256GCM, SuiteChaCha20Poly1305:
	default:
		return nil, fmt.Errorf("unknown cipher suite %q", suite)
	}
	switch kdf {
	case KDFHKDFSHA256, KDFRaw:
	default:
		return nil, fmt.Errorf("unknown kdf %q", kdf)
	}
	e := &Engine{
		suite: suite,
		kdf:   kdf,
		curve: ecdh.P256(),
		rand:  rand.Reader,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Suite returns the configured AEAD suite.
func (e *Engine) Suite() Suite { return e.suite }

// GenerateKeyPair returns a fresh P-256 keypair.
func (e *Engine) GenerateKeyPair() (domain.KeyPair, error) {
	priv, err := e.curve.GenerateKey(e.rand)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	return domain.KeyPair{Private: priv, Public: priv.PublicKey()}, nil
}

// ExportPublicKey encodes the public half of kp as a JWK.
func (e *Engine) ExportPublicKey(kp domain.KeyPair) (domain.JWK, error) {
	if kp.Public == nil {
		return domain.JWK{}, fmt.Errorf("%w: no public key", ErrKeyGeneration)
	}
	return publicToJWK(kp.Public)
}

// ImportPeerKey decodes and validates a peer JWK. Malformed input, a curve
// other than P-256 or a point off the curve fail with ErrKeyImport.
func (e *Engine) ImportPeerKey(jwk domain.JWK) (domain.PeerPublicKey, error) {
	pub, err := jwkToPublic(e.curve, jwk)
	if err != nil {
		return domain.PeerPublicKey{}, fmt.Errorf("%w: %v", ErrKeyImport, err)
	}
	return domain.PeerPublicKey{Key: pub}, nil
}

// DeriveSharedSecret runs ECDH between own and peer and turns the output
// into the AEAD key.
func (e *Engine) DeriveSharedSecret(own *ecdh.PrivateKey, peer domain.PeerPublicKey) (domain.SharedSecret, error) {
	var out domain.SharedSecret
	if own == nil || peer.Key == nil {
		return out, fmt.Errorf("%w: missing key material", ErrDerivation)
	}
	z, err := own.ECDH(peer.Key)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrDerivation, err)
	}
	defer memzero.Zero(z)

	switch e.kdf {
	case KDFRaw:
		copy(out[:], z)
	default:
		r := hkdf.New(sha256.New, z, nil, []byte(hkdfInfoPrefix+string(e.suite)))
		if _, err := io.ReadFull(r, out[:]); err != nil {
			return domain.SharedSecret{}, fmt.Errorf("%w: %v", ErrDerivation, err)
		}
	}
	return out, nil
}

// Encrypt seals plaintext under key with a fresh random nonce.
func (e *Engine) Encrypt(key *domain.SharedSecret, plaintext []byte) (domain.EncryptedPayload, error) {
	aead, err := e.aead(key)
	if err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	nonce := make([]byte, NonceBytes)
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("%w: nonce: %v", ErrEncryption, err)
	}
	ct := aead.Seal(nil, nonce, plaintext, nil)
	return domain.EncryptedPayload{IV: nonce, Ciphertext: ct}, nil
}

// Decrypt opens ciphertext. Every failure, whatever its cause, is reported
// as ErrAuthentication.
func (e *Engine) Decrypt(key *domain.SharedSecret, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := e.aead(key)
	if err != nil {
		return nil, ErrAuthentication
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrAuthentication
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return pt, nil
}

func (e *Engine) aead(key *domain.SharedSecret) (cipher.AEAD, error) {
	if key == nil {
		return nil, errors.New("nil key")
	}
	if e.suite == SuiteChaCha20Poly1305 {
		return chacha20poly1305.New(key.Slice())
	}
	block, err := aes.NewCipher(key.Slice())
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
