package types

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire unit exchanged through the relay. Type selects which of
// the optional fields are meaningful.
//
// Sender is filled by the relay. Recipient is only present on the relay's
// echo of our own outbound envelope.
type Envelope struct {
	Type       EnvelopeType      `json:"type"`
	TargetUser Username          `json:"target_user,omitempty"`
	Sender     Username          `json:"sender,omitempty"`
	Recipient  Username          `json:"recipient,omitempty"`
	PublicKey  *JWK              `json:"publicKey,omitempty"`
	IsReply    bool              `json:"is_reply,omitempty"`
	Content    *EncryptedPayload `json:"content,omitempty"`
}

// MarshalJSON always writes is_reply on key_exchange envelopes, including
// false, and never on other types.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type plain Envelope
	out := struct {
		plain
		IsReply *bool `json:"is_reply,omitempty"`
	}{plain: plain(e)}
	if e.Type == EnvelopeKeyExchange {
		isReply := e.IsReply
		out.IsReply = &isReply
	}
	return json.Marshal(out)
}

// NewKeyExchange builds a key_exchange envelope addressed to target.
func NewKeyExchange(target Username, pub JWK, isReply bool) Envelope {
	return Envelope{
		Type:       EnvelopeKeyExchange,
		TargetUser: target,
		PublicKey:  &pub,
		IsReply:    isReply,
	}
}

// NewEncryptedText builds an encrypted_text envelope addressed to target.
func NewEncryptedText(target Username, payload EncryptedPayload) Envelope {
	return Envelope{
		Type:       EnvelopeEncryptedText,
		TargetUser: target,
		Content:    &payload,
	}
}

// EncryptedPayload carries one AEAD message. Ciphertext includes the tag.
type EncryptedPayload struct {
	IV         ByteArray `json:"iv"`
	Ciphertext ByteArray `json:"ciphertext"`
}

// ByteArray encodes as a JSON array of integers instead of base64, which is
// how a browser peer serialises Uint8Array contents.
type ByteArray []byte

// MarshalJSON encodes b as [n, n, ...].
func (b ByteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// UnmarshalJSON mirrors MarshalJSON and rejects values outside 0..255.
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte array: element %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
