package ports

import (
	"context"

	"github.com/vshulcz/Lumectra/internal/domain"
)

// EntryQueue is shared by every device reader (producers) and the pusher (consumer).
type EntryQueue interface {
	// Enqueue never blocks.
	Enqueue(e domain.Entry)
	// Dequeue blocks until an entry is available or ctx is done.
	Dequeue(ctx context.Context) (domain.Entry, error)
	Len() int
}
