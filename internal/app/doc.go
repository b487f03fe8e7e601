// Package app wires application dependencies for both binaries.
//
// Config is loaded from YAML and overridden by command-line flags. Wire
// builds the logger, the crypto engine, the transport and the relay server
// from it; App runs a chat session over them for the CLI.
package app
