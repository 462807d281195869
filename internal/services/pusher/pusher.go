// Package pusher drains the delivery queue into a time-series database sink.
package pusher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/misc"
	"github.com/vshulcz/Lumectra/internal/ports"
)

// Pusher is the single consumer of the delivery queue.
type Pusher struct {
	queue ports.EntryQueue
	sink  ports.Sink
	log   *zap.Logger
	obs   ports.Observability
	retry time.Duration
}

// Option customizes a Pusher.
type Option func(*Pusher)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pusher) {
		if l != nil {
			p.log = l
		}
	}
}

// WithRetryInterval sets the fixed pause before reopening a failed session.
func WithRetryInterval(d time.Duration) Option {
	return func(p *Pusher) {
		if d > 0 {
			p.retry = d
		}
	}
}

// WithObservability plugs pipeline instrumentation in.
func WithObservability(o ports.Observability) Option {
	return func(p *Pusher) {
		if o != nil {
			p.obs = o
		}
	}
}

// New wires a pusher between q and sink.
func New(q ports.EntryQueue, sink ports.Sink, opts ...Option) *Pusher {
	p := &Pusher{
		queue: q,
		sink:  sink,
		log:   zap.NewNop(),
		obs:   ports.NopObservability{},
		retry: misc.DefaultRetryInterval,
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With(zap.String("component", "pusher"), zap.String("sink", sink.Name()))
	return p
}

// Run delivers entries until ctx is done. An entry whose delivery fails is
// dropped; the session is replaced after a fixed pause.
func (p *Pusher) Run(ctx context.Context) error {
	for {
		err := p.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		p.obs.PushFailed()
		p.log.Warn("push failed", zap.Error(err), zap.Duration("retry_in", p.retry))
		if err := misc.Sleep(ctx, p.retry); err != nil {
			return nil
		}
	}
}

func (p *Pusher) session(ctx context.Context) error {
	s, err := p.sink.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			p.log.Debug("close session", zap.Error(cerr))
		}
	}()

	for {
		e, err := p.queue.Dequeue(ctx)
		if err != nil {
			return err
		}
		if err := p.push(ctx, s, e); err != nil {
			return err
		}
	}
}

func (p *Pusher) push(ctx context.Context, s ports.Session, e domain.Entry) error {
	start := time.Now()
	if err := s.Send(ctx, e); err != nil {
		p.log.Debug("entry dropped", zap.String("host", e.Host), zap.Int("samples", e.Len()))
		return err
	}
	took := time.Since(start)
	p.obs.EntryPushed(len(e.Body), took)
	p.log.Debug("entry pushed",
		zap.String("host", e.Host),
		zap.Int("samples", e.Len()),
		zap.Duration("took", took),
	)
	return nil
}
