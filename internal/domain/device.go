package domain

import "time"

// DeviceState is the phase of a device reader's connection loop.
type DeviceState string

const (
	DeviceConnecting DeviceState = "connecting"
	DeviceStreaming  DeviceState = "streaming"
	DeviceBackoff    DeviceState = "backoff"
	DeviceStopped    DeviceState = "stopped"
)

// DeviceEvent is published by a device reader on every state change and for every enqueued entry.
type DeviceEvent struct {
	At      time.Time
	Err     error
	Host    string
	State   DeviceState
	Samples int
}
