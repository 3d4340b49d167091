// Package device provides access to a haptic playback device.
//
// The central abstraction is the Session interface, which covers the
// operations the bridge needs from a device backend: frame submission,
// registered pattern playback, and connectivity queries. Two
// implementations are provided:
//
//   - PlayerClient talks to the bHaptics Player application over its
//     local WebSocket feedback endpoint.
//   - Simulator is an in-memory session with no external dependencies,
//     used for development and testing without hardware.
package device
