// Package pattern models timed vibration sequences for a haptic vest
// and runs them as supervised background tasks.
//
// A sequence is a list of Steps. Each Step holds one intensity grid per
// vest panel, laid out in the physical 4x5 arrangement of the motors.
// The Runner drives sequences against a device.Session on their own
// goroutines, pacing steps by duration and reporting exactly one
// terminal outcome per task.
package pattern
