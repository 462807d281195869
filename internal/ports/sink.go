package ports

import (
	"context"

	"github.com/vshulcz/Lumectra/internal/domain"
)

// Sink opens sessions towards the time-series database.
type Sink interface {
	Open(ctx context.Context) (Session, error)
	Name() string
}

// Session is a persistent connection reused for many entries until it fails.
type Session interface {
	Send(ctx context.Context, e domain.Entry) error
	Close() error
}
