// Package duration tracks keyed activity windows.
//
// A window is opened with a deadline and expires automatically. Callers
// can probe whether a key is still active, cancel windows early, and
// register a callback for expiry. The device layer uses it to model how
// long a submitted frame keeps its playback key active.
package duration
