// Package main runs the parley relay.
//
// HTTP API
//
//	GET /chat/ws/{id}
//	    Upgrade to a WebSocket for user {id}. Every text frame is a JSON
//	    envelope; the relay stamps it with sender={id}, forwards it to
//	    target_user and echoes a copy back with recipient=target_user.
//	    A second connection for the same {id} replaces the first.
//
//	GET /presence/{id}
//	    {"user": id, "online": bool}.
//
//	GET /healthz
//	    "ok".
//
//	GET /metrics
//	    Prometheus metrics, unless disabled with --metrics=false.
//
// With --nats the relay also bridges <prefix>.out.<user> to
// <prefix>.in.<target> under the same rules.
//
// Behaviour
//
//   - Nothing is stored. Envelopes for users who are not connected are
//     dropped.
//   - The relay never sees plaintext or private keys.
package main
