// Package reader implements the per-device loop: connect, decode events, extract samples, enqueue.
package reader

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/misc"
	"github.com/vshulcz/Lumectra/internal/ports"
	"github.com/vshulcz/Lumectra/internal/services/extract"
	"github.com/vshulcz/Lumectra/pkg/observer"
)

// TelemetryPath is where devices expose their optics push stream.
const TelemetryPath = "/telemetry/optics"

// Reader follows the telemetry stream of one device for the lifetime of the process.
type Reader struct {
	host       string
	url        string
	src        ports.EventSource
	queue      ports.EntryQueue
	log        *zap.Logger
	obs        ports.Observability
	events     observer.Publisher[domain.DeviceEvent]
	retry      time.Duration
	noSpectrum bool
	now        func() time.Time
}

// Option customizes a Reader.
type Option func(*Reader)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRetryInterval sets the fixed pause before reconnecting.
func WithRetryInterval(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.retry = d
		}
	}
}

// WithoutSpectrum disables spectrum-scan extraction.
func WithoutSpectrum(disabled bool) Option {
	return func(r *Reader) { r.noSpectrum = disabled }
}

// WithObservability plugs pipeline instrumentation in.
func WithObservability(o ports.Observability) Option {
	return func(r *Reader) {
		if o != nil {
			r.obs = o
		}
	}
}

// WithEvents publishes state changes to p.
func WithEvents(p observer.Publisher[domain.DeviceEvent]) Option {
	return func(r *Reader) {
		if p != nil {
			r.events = p
		}
	}
}

// New builds a reader for device, which is a host[:port] or a base URL.
func New(device string, src ports.EventSource, q ports.EntryQueue, opts ...Option) (*Reader, error) {
	u, err := TelemetryURL(device)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		host:   device,
		url:    u,
		src:    src,
		queue:  q,
		log:    zap.NewNop(),
		obs:    ports.NopObservability{},
		events: observer.Discard[domain.DeviceEvent]{},
		retry:  misc.DefaultRetryInterval,
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With(zap.String("host", r.host))
	return r, nil
}

// TelemetryURL builds the stream URL of a device.
func TelemetryURL(device string) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("empty device address")
	}
	if strings.Contains(device, "://") {
		u, err := url.Parse(device)
		if err != nil {
			return "", fmt.Errorf("invalid device address %q: %w", device, err)
		}
		u.Path = strings.TrimRight(u.Path, "/") + TelemetryPath
		return u.String(), nil
	}
	u := url.URL{Scheme: "http", Host: device, Path: TelemetryPath}
	if _, err := url.ParseRequestURI(u.String()); err != nil {
		return "", fmt.Errorf("invalid device address %q: %w", device, err)
	}
	return u.String(), nil
}

// Host is the device identifier used as the host label.
func (r *Reader) Host() string { return r.host }

// Run loops until ctx is done. Failures never end the loop: they are logged,
// followed by a fixed pause and a fresh connection.
func (r *Reader) Run(ctx context.Context) error {
	r.log.Info("handling device", zap.String("url", r.url))
	for {
		err := r.session(ctx)
		if ctx.Err() != nil {
			r.publish(ctx, domain.DeviceStopped, nil, 0)
			return nil
		}
		r.obs.DeviceFailed(r.host)
		r.log.Warn("device stream failed", zap.Error(err), zap.Duration("retry_in", r.retry))
		r.publish(ctx, domain.DeviceBackoff, err, 0)
		if err := misc.Sleep(ctx, r.retry); err != nil {
			r.publish(ctx, domain.DeviceStopped, nil, 0)
			return nil
		}
	}
}

// session is one connection attempt. The spectrum cache lives exactly as long as it does.
func (r *Reader) session(ctx context.Context) error {
	r.publish(ctx, domain.DeviceConnecting, nil, 0)
	var spectrum extract.SpectrumCache

	st, err := r.src.Open(ctx, r.url, "")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			r.log.Debug("close stream", zap.Error(cerr))
		}
	}()
	r.publish(ctx, domain.DeviceStreaming, nil, 0)

	for {
		payload, err := st.Next()
		if err != nil {
			return err
		}
		r.obs.EventReceived(r.host)
		n, err := r.handle(payload, &spectrum)
		if err != nil {
			return err
		}
		if n > 0 {
			r.publish(ctx, domain.DeviceStreaming, nil, n)
		}
	}
}

// handle turns one event payload into at most one queue entry and returns its sample count.
func (r *Reader) handle(payload string, spectrum *extract.SpectrumCache) (int, error) {
	ds, err := domain.ParseNotification([]byte(payload))
	if err != nil {
		return 0, fmt.Errorf("notification: %w", err)
	}
	samples := extract.Extract(ds, r.host)
	if !r.noSpectrum {
		samples = append(samples, extract.ExtractSpectrum(ds, r.host, spectrum)...)
	}
	if len(samples) == 0 {
		return 0, nil
	}
	r.queue.Enqueue(domain.NewEntry(r.host, samples))
	r.obs.EntryEnqueued(r.host, len(samples))
	r.log.Debug("entry enqueued", zap.Int("samples", len(samples)))
	return len(samples), nil
}

func (r *Reader) publish(ctx context.Context, state domain.DeviceState, cause error, samples int) {
	evt := domain.DeviceEvent{
		At:      r.now(),
		Err:     cause,
		Host:    r.host,
		State:   state,
		Samples: samples,
	}
	if err := r.events.Publish(ctx, evt); err != nil {
		r.log.Debug("publish device event", zap.Error(err))
	}
}
