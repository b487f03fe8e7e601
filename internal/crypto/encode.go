package crypto

import (
	"crypto/ecdh"
	"encoding/base64"
	"errors"
	"fmt"

	"parley/internal/domain"
)

const (
	jwkKeyType = "EC"
	jwkCurve   = "P-256"

	coordBytes = 32
)

// B64URL returns unpadded base64url, the JWK coordinate encoding.
func B64URL(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func publicToJWK(pub *ecdh.PublicKey) (domain.JWK, error) {
	raw := pub.Bytes() // 0x04 || X || Y
	if len(raw) != 1+2*coordBytes || raw[0] != 4 {
		return domain.JWK{}, errors.New("unexpected point encoding")
	}
	return domain.JWK{
		Kty: jwkKeyType,
		Crv: jwkCurve,
		X:   B64URL(raw[1 : 1+coordBytes]),
		Y:   B64URL(raw[1+coordBytes:]),
		Ext: true,
	}, nil
}

func jwkToPublic(curve ecdh.Curve, jwk domain.JWK) (*ecdh.PublicKey, error) {
	if jwk.Kty != jwkKeyType {
		return nil, fmt.Errorf("kty %q, want %q", jwk.Kty, jwkKeyType)
	}
	if jwk.Crv != jwkCurve {
		return nil, fmt.Errorf("crv %q, want %q", jwk.Crv, jwkCurve)
	}
	x, err := decodeCoord(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("x: %w", err)
	}
	y, err := decodeCoord(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("y: %w", err)
	}
	raw := make([]byte, 0, 1+2*coordBytes)
	raw = append(raw, 4)
	raw = append(raw, x...)
	raw = append(raw, y...)
	// NewPublicKey rejects points that are not on the curve.
	return curve.NewPublicKey(raw)
}

func decodeCoord(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != coordBytes {
		return nil, fmt.Errorf("want %d bytes, got %d", coordBytes, len(b))
	}
	return b, nil
}
