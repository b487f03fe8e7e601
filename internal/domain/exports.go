package domain

import (
	interfaces "parley/internal/domain/interfaces"
	types "parley/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username         = types.Username
	Fingerprint      = types.Fingerprint
	EnvelopeType     = types.EnvelopeType
	Envelope         = types.Envelope
	EncryptedPayload = types.EncryptedPayload
	ByteArray        = types.ByteArray
	JWK              = types.JWK
	KeyPair          = types.KeyPair
	PeerPublicKey    = types.PeerPublicKey
	SharedSecret     = types.SharedSecret
	SecurityStatus   = types.SecurityStatus
	Origin           = types.Origin
	DeliveredMessage = types.DeliveredMessage
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Sender      = interfaces.Sender
	Transport   = interfaces.Transport
	StatusSink  = interfaces.StatusSink
	MessageSink = interfaces.MessageSink
)

const (
	EnvelopeKeyExchange   = types.EnvelopeKeyExchange
	EnvelopeEncryptedText = types.EnvelopeEncryptedText

	Insecure = types.Insecure
	Secure   = types.Secure

	FromPeer = types.FromPeer
	Echo     = types.Echo

	SharedSecretSize = types.SharedSecretSize
)

var (
	NewKeyExchange   = types.NewKeyExchange
	NewEncryptedText = types.NewEncryptedText
)
