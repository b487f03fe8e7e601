// Package handshake implements the two-message public key exchange that
// brings a session from Insecure to Secure.
//
// # Flow
//
//  1. Init: on channel open, generate a P-256 keypair and send
//     key_exchange{is_reply:false} with our public key.
//  2. KeysReady: on the peer's key_exchange, import the key, derive the
//     shared secret and become Secure. If the peer's envelope was a first
//     offer (is_reply false), answer exactly once with is_reply true.
//  3. Secure: terminal. Later key exchanges are ignored.
//
// Envelopes whose sender is not the configured peer never change state.
//
// # Security notes
//
// The peer's key is not authenticated. The relay's sender label is trusted.
package handshake
