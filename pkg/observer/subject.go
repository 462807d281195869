// Package observer provides a small typed fan-out used to broadcast pipeline events.
package observer

import (
	"context"
	"errors"
	"sync"
)

// Observer receives published events of type T.
type Observer[T any] interface {
	Notify(context.Context, T) error
}

// ObserverFunc adapts a standalone function into an Observer.
//
//revive:disable-next-line:exported
type ObserverFunc[T any] func(context.Context, T) error

// Notify executes the wrapped function.
func (f ObserverFunc[T]) Notify(ctx context.Context, evt T) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Publisher is the producer side of a Subject.
type Publisher[T any] interface {
	Publish(context.Context, T) error
}

// Discard is a Publisher that drops every event.
type Discard[T any] struct{}

// Publish implements Publisher.
func (Discard[T]) Publish(context.Context, T) error { return nil }

// Subject delivers each event to every attached observer, in attach order.
// A failing observer does not stop delivery to the others.
type Subject[T any] struct {
	mu        sync.RWMutex
	observers []Observer[T]
}

// NewSubject constructs a Subject with optional initial observers.
func NewSubject[T any](observers ...Observer[T]) *Subject[T] {
	s := &Subject[T]{}
	s.Attach(observers...)
	return s
}

// Publish notifies every observer and returns their failures joined together.
func (s *Subject[T]) Publish(ctx context.Context, evt T) error {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()

	var errs []error
	for _, obs := range observers {
		if err := obs.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Attach registers additional observers; nil observers are ignored.
func (s *Subject[T]) Attach(observers ...Observer[T]) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]Observer[T], 0, len(s.observers)+len(observers))
	next = append(next, s.observers...)
	for _, o := range observers {
		if o != nil {
			next = append(next, o)
		}
	}
	s.observers = next
}

// Len reports the number of attached observers.
func (s *Subject[T]) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}
