// Package commands defines the parley CLI.
//
// Commands
//
//   - chat      Open an encrypted chat with --peer through the relay
//   - presence  Ask the relay whether a user is connected
//   - config    Print the effective configuration
//
// # Implementation
//
// The root command loads the YAML config, applies flag overrides and
// builds the dependency graph before any subcommand runs. Status lines go
// to stderr; chat messages go to stdout.
package commands
