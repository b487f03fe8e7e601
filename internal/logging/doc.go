// Package logging builds the zerolog loggers used by both binaries.
package logging
