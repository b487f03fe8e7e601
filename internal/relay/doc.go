// Package relay holds the client side of the relay: the Transport
// implementations a session talks through, and the forwarding rules the
// relay applies.
//
// Transports:
//   - WebSocket dials <relay>/chat/ws/<self> and exchanges JSON text frames.
//   - NATS publishes on <prefix>.out.<self> and subscribes <prefix>.in.<self>.
//   - Memory is an in-process relay for tests and local demos.
//
// Route is shared by every relay implementation. The server side lives in
// relay/server.
package relay
