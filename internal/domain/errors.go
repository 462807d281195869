package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedStream marks an event-stream line that matches no known shape.
	ErrMalformedStream = errors.New("malformed event stream")
	// ErrSnapshotShape marks a missing node or a node of the wrong type in a snapshot.
	ErrSnapshotShape = errors.New("unexpected snapshot shape")
	// ErrTransport marks connection-level failures on either side of the pipeline.
	ErrTransport = errors.New("transport failure")
	// ErrStreamClosed is returned when a device ends its event stream.
	ErrStreamClosed = errors.New("event stream closed by peer")
	// ErrNoDevices is the only fatal configuration error.
	ErrNoDevices = errors.New("no devices configured")
)

// MalformedStreamError carries the offending line.
type MalformedStreamError struct {
	Line string
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("malformed line: no \"data: \" prefix or an empty line: %q", e.Line)
}

func (e *MalformedStreamError) Unwrap() error { return ErrMalformedStream }

// SnapshotShapeError describes which node of a snapshot could not be read.
type SnapshotShapeError struct {
	Path   string
	Reason string
}

func (e *SnapshotShapeError) Error() string {
	return fmt.Sprintf("snapshot %s: %s", e.Path, e.Reason)
}

func (e *SnapshotShapeError) Unwrap() error { return ErrSnapshotShape }

// TransportError wraps a network failure with the operation and target that caused it.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }
