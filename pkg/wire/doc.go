// Package wire defines the JSON wire format for the haptics bridge protocol.
//
// All messages are UTF-8 JSON objects carried in single UDP datagrams.
// Delivery is best-effort: no retransmission, no ordering. Callers that
// need ordering must wait for each command's response before sending the
// next command.
//
// # Message Types
//
// Client to server:
//   - Command: a named command with parameters, a correlation ID and a
//     client ID. Both IDs have generation defaults applied at decode time.
//
// Server to client:
//   - Response: successful completion of a command, correlated by ID.
//   - ErrorResponse: command failure. The command ID may be absent when
//     the datagram could not be parsed far enough to extract one.
//   - Event: an asynchronous notification (e.g. pattern completion).
//   - StatusUpdate: periodic server/device status broadcast.
//
// The discovery exchange (bare phrase in, DiscoveryResponse out) shares
// this package's encoding but travels on a separate port.
package wire
