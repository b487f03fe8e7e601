// Package session holds the state of one conversation: our keypair, the
// peer's key, the derived shared secret and the security status.
//
// The status moves from Insecure to Secure exactly once and never back.
// Closing the state wipes the shared secret.
package session
