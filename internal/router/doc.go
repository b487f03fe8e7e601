// Package router is the single entry point for inbound envelopes of a
// session and the gate for outbound plaintext.
//
// Inbound envelopes are dispatched by type: key exchanges from the peer go
// to the handshake controller, encrypted text from the peer (or the relay's
// echo of our own) is decrypted and delivered. Everything else is dropped
// without a trace.
package router
