// Package status implements the status and message sinks a session reports
// to: a terminal Console and an in-memory Recorder.
package status
