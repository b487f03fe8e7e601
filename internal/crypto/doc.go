// Package crypto exposes the primitives used by a parley session.
//
// Contents
//
//   - P-256 key generation, JWK export and import (Engine.GenerateKeyPair,
//     Engine.ExportPublicKey, Engine.ImportPeerKey)
//   - ECDH followed by HKDF-SHA256 (or the raw WebCrypto-compatible
//     x-coordinate) into a 256-bit AEAD key (Engine.DeriveSharedSecret)
//   - AES-256-GCM or ChaCha20-Poly1305 with a fresh 12-byte random nonce
//     per message (Engine.Encrypt, Engine.Decrypt)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Errors
//
// Failures wrap one of ErrKeyGeneration, ErrKeyImport, ErrDerivation or
// ErrEncryption. Decrypt returns the bare ErrAuthentication for any failure
// so callers cannot tell a bad tag from any other cause.
package crypto
