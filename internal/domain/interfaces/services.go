package interfaces

import domaintypes "parley/internal/domain/types"

// StatusSink receives human-facing progress and locally recovered errors.
type StatusSink interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string, err error)
}

// MessageSink receives decrypted messages.
type MessageSink interface {
	Deliver(msg domaintypes.DeliveredMessage)
}
