package ports

import "context"

// EventStream is one open server-push connection to a device.
type EventStream interface {
	// Next blocks until the next complete event payload arrives.
	Next() (string, error)
	Close() error
}

// EventSource opens event streams. lastEventID may be empty.
type EventSource interface {
	Open(ctx context.Context, url, lastEventID string) (EventStream, error)
}
