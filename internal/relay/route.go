package relay

import (
	"errors"

	"parley/internal/domain"
)

var (
	// ErrNoTarget is returned for envelopes without target_user.
	ErrNoTarget = errors.New("envelope has no target_user")
	// ErrUnknownType is returned for envelope types the relay does not forward.
	ErrUnknownType = errors.New("unknown envelope type")
	// ErrNoSender is returned when the relay could not identify the sender.
	ErrNoSender = errors.New("sender unknown")
)

// Delivery is one copy of an envelope to hand to a connected user.
type Delivery struct {
	To       domain.Username
	Envelope domain.Envelope
	// Echo marks the copy reflected back to the sender.
	Echo bool
}

// Route applies the relay forwarding rules to env sent by sender.
//
// The recipient copy always carries the relay's own sender label; whatever
// the client claimed is overwritten. The echo goes back to the sender with
// recipient set and no sender.
func Route(sender domain.Username, env domain.Envelope) ([]Delivery, error) {
	if sender == "" {
		return nil, ErrNoSender
	}
	if !env.Type.Known() {
		return nil, ErrUnknownType
	}
	if env.TargetUser == "" {
		return nil, ErrNoTarget
	}

	forRecipient := env
	forRecipient.Sender = sender
	forRecipient.Recipient = ""

	forSender := env
	forSender.Sender = ""
	forSender.Recipient = env.TargetUser

	return []Delivery{
		{To: env.TargetUser, Envelope: forRecipient},
		{To: sender, Envelope: forSender, Echo: true},
	}, nil
}
