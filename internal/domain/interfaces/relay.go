package interfaces

import (
	"context"

	domaintypes "parley/internal/domain/types"
)

// Sender emits envelopes towards the relay. Sends are fire-and-forget from
// the protocol's point of view; an error only means the transport rejected
// the write.
type Sender interface {
	Send(ctx context.Context, envelope domaintypes.Envelope) error
}

// Transport is a duplex channel to the relay. Receive yields inbound
// envelopes in arrival order and is closed when the channel closes.
type Transport interface {
	Sender
	Receive() <-chan domaintypes.Envelope
	Close() error
}
