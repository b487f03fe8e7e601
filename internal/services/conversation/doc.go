// Package conversation owns one chat session from channel open to channel
// close.
//
// A Session wires the key-exchange controller, the router and the session
// state to a Transport and runs them on a single loop, so envelopes and
// outbound sends are handled strictly one at a time. Closing the channel,
// or cancelling Run's context, wipes the derived key.
package conversation
