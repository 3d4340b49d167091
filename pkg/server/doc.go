// Package server implements the UDP command server of the haptics
// bridge.
//
// The server owns one command socket. A receive loop reads datagrams
// and hands each one to its own goroutine, so a slow handler never
// stalls command intake. Handlers validate parameters, drive the
// device session (directly for one-shot activations, through the
// pattern runner for multi-second sequences) and produce a correlated
// response. A background broadcaster pushes status snapshots to every
// known client and sweeps abandoned correlation entries.
//
// Shutdown is idempotent and ordered: sockets close first, then
// discovery stops, in-flight playback drains within a bound, and the
// device session is destroyed exactly once.
package server
