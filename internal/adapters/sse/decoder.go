// Package sse reads server-push event streams (text/event-stream) exposed by device telemetry endpoints.
package sse

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"

	"github.com/vshulcz/Lumectra/internal/domain"
)

const dataPrefix = "data: "

// Decoder turns an event-stream body into complete event payloads.
// It is lazy and cannot be restarted; after the first error every call returns that error.
type Decoder struct {
	r       *bufio.Reader
	pending []string
	err     error
}

// NewDecoder wraps r. Lines are not length-limited.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next event payload. It returns io.EOF when the body ends and
// a *domain.MalformedStreamError when a line matches no known shape.
func (d *Decoder) Next() (string, error) {
	if d.err != nil {
		return "", d.err
	}
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				d.err = err
				return "", err
			}
			if line == "" {
				d.pending = nil
				d.err = io.EOF
				return "", io.EOF
			}
			// the last line lacked a terminator; classify it and stop afterwards
			d.err = io.EOF
		}

		event, ok, lerr := d.feed(trimTerminator(line))
		if lerr != nil {
			d.err = lerr
			return "", lerr
		}
		if ok {
			return event, nil
		}
		if d.err != nil {
			d.pending = nil
			return "", d.err
		}
	}
}

func (d *Decoder) feed(line string) (string, bool, error) {
	switch {
	case line == "":
		if len(d.pending) == 0 {
			return "", false, nil
		}
		event := strings.Join(d.pending, "")
		d.pending = d.pending[:0]
		return event, true, nil
	case strings.HasPrefix(line, ":"):
		return "", false, nil
	case strings.HasPrefix(line, dataPrefix):
		d.pending = append(d.pending, line[len(dataPrefix):])
		return "", false, nil
	default:
		return "", false, &domain.MalformedStreamError{Line: line}
	}
}

// Events exposes the decoder as a sequence. A terminal io.EOF ends the
// sequence silently; any other error is yielded once as the last element.
func (d *Decoder) Events() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for {
			event, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

func trimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
