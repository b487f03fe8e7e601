// Package server is the relay: it accepts one WebSocket per user at
// /chat/ws/{id}, labels every envelope with the connection's user id and
// forwards it to the target, echoing a copy back to the sender.
//
// The same rules are applied to NATS clients by Bridge. Nothing is stored;
// envelopes for users who are not connected are dropped.
package server
