package ports

import "time"

// Observability receives pipeline events for instrumentation.
type Observability interface {
	EventReceived(host string)
	EntryEnqueued(host string, samples int)
	DeviceFailed(host string)
	EntryPushed(bytes int, took time.Duration)
	PushFailed()
}

// NopObservability discards every event.
type NopObservability struct{}

func (NopObservability) EventReceived(string) {}
func (NopObservability) EntryEnqueued(string, int) {}
func (NopObservability) DeviceFailed(string) {}
func (NopObservability) EntryPushed(int, time.Duration) {}
func (NopObservability) PushFailed() {}

var _ Observability = NopObservability{}
