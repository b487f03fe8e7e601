package crypto

import (
	"crypto/ecdh"
	"crypto/sha256"
	"encoding/hex"

	"parley/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes the uncompressed point with SHA-256 and truncates to 10 bytes
// (20 hex chars). It is for display only.
func Fingerprint(pub *ecdh.PublicKey) domain.Fingerprint {
	if pub == nil {
		return ""
	}
	sum := sha256.Sum256(pub.Bytes())
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}
