package types

// SecurityStatus gates whether plaintext may be encrypted or ciphertext
// attempted.
type SecurityStatus int

const (
	Insecure SecurityStatus = iota
	Secure
)

// String returns a lower-case label for logs.
func (s SecurityStatus) String() string {
	switch s {
	case Insecure:
		return "insecure"
	case Secure:
		return "secure"
	default:
		return "unknown"
	}
}

// Origin says why an inbound encrypted_text was accepted.
type Origin int

const (
	// FromPeer is a message the peer sent us.
	FromPeer Origin = iota
	// Echo is our own outbound message reflected by the relay.
	Echo
)

// String returns a lower-case label for logs.
func (o Origin) String() string {
	if o == Echo {
		return "echo"
	}
	return "peer"
}

// DeliveredMessage is a decrypted message handed to the MessageSink.
type DeliveredMessage struct {
	Origin    Origin
	Peer      Username
	Plaintext []byte
}
