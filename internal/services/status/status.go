// Package status keeps the latest connection state of every device reader.
package status

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/pkg/observer"
)

// DeviceStatus is the externally visible view of one device.
type DeviceStatus struct {
	Host       string             `json:"host"`
	State      domain.DeviceState `json:"state"`
	Since      time.Time          `json:"since"`
	LastEntry  *time.Time         `json:"last_entry,omitempty"`
	LastError  string             `json:"last_error,omitempty"`
	Reconnects int                `json:"reconnects"`
	Entries    int64              `json:"entries"`
	Samples    int64              `json:"samples"`
}

// Tracker folds device events into per-device status.
type Tracker struct {
	mu      sync.RWMutex
	devices map[string]*DeviceStatus
}

var _ observer.Observer[domain.DeviceEvent] = (*Tracker)(nil)

// New returns a tracker that already lists hosts as connecting.
func New(hosts ...string) *Tracker {
	t := &Tracker{devices: make(map[string]*DeviceStatus, len(hosts))}
	now := time.Now()
	for _, h := range hosts {
		t.devices[h] = &DeviceStatus{Host: h, State: domain.DeviceConnecting, Since: now}
	}
	return t
}

// Notify implements observer.Observer.
func (t *Tracker) Notify(_ context.Context, e domain.DeviceEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.devices[e.Host]
	if !ok {
		st = &DeviceStatus{Host: e.Host, State: e.State, Since: e.At}
		t.devices[e.Host] = st
	}
	if st.State != e.State {
		st.State = e.State
		st.Since = e.At
	}
	switch e.State {
	case domain.DeviceBackoff:
		st.Reconnects++
		if e.Err != nil {
			st.LastError = e.Err.Error()
		}
	case domain.DeviceStreaming:
		if e.Samples > 0 {
			at := e.At
			st.LastEntry = &at
			st.Entries++
			st.Samples += int64(e.Samples)
		}
	default:
	}
	return nil
}

// Get returns the status of one device.
func (t *Tracker) Get(host string) (DeviceStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.devices[host]
	if !ok {
		return DeviceStatus{}, false
	}
	return *st, true
}

// Snapshot returns copies of all statuses ordered by host.
func (t *Tracker) Snapshot() []DeviceStatus {
	t.mu.RLock()
	out := make([]DeviceStatus, 0, len(t.devices))
	for _, st := range t.devices {
		out = append(out, *st)
	}
	t.mu.RUnlock()
	slices.SortFunc(out, func(a, b DeviceStatus) int { return strings.Compare(a.Host, b.Host) })
	return out
}
