// Package promtext pushes entries to a TSDB import endpoint in Prometheus exposition text.
package promtext

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/misc"
	"github.com/vshulcz/Lumectra/internal/ports"
)

// DefaultURL is the VictoriaMetrics Prometheus-text import endpoint on the local host.
const DefaultURL = "http://localhost:8428/api/v1/import/prometheus"

// ContentType is the exposition format version sent with every push.
const ContentType = "text/plain; version=0.0.4"

var (
	gzipWriterPool = sync.Pool{
		New: func() any {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = misc.NewPool(func() *bytes.Buffer {
		return new(bytes.Buffer)
	})
)

// Sink opens HTTP sessions towards the ingestion URL.
type Sink struct {
	url       string
	gzip      bool
	log       *zap.Logger
	transport func() *http.Transport
}

var _ ports.Sink = (*Sink)(nil)

// Option customizes a Sink.
type Option func(*Sink)

// WithGzip compresses request bodies.
func WithGzip(on bool) Option {
	return func(s *Sink) { s.gzip = on }
}

// WithLogger sets the logger used for response diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTransport overrides how each session builds its transport.
func WithTransport(fn func() *http.Transport) Option {
	return func(s *Sink) {
		if fn != nil {
			s.transport = fn
		}
	}
}

// New validates the ingestion URL and returns a Sink. An empty address selects DefaultURL.
func New(addr string, opts ...Option) (*Sink, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = DefaultURL
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid tsdb url %q: %w", addr, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid tsdb url %q: missing host", addr)
	}
	s := &Sink{
		url:       u.String(),
		log:       zap.NewNop(),
		transport: newTransport,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func newTransport() *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}
	tr := base.Clone()
	tr.DialContext = (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	tr.MaxIdleConnsPerHost = 1
	return tr
}

// Name implements ports.Sink.
func (s *Sink) Name() string { return "promtext" }

// URL is the ingestion endpoint.
func (s *Sink) URL() string { return s.url }

// Open returns a session holding its own keep-alive connection pool.
func (s *Sink) Open(context.Context) (ports.Session, error) {
	tr := s.transport()
	return &session{
		sink: s,
		tr:   tr,
		hc:   &http.Client{Transport: tr},
	}, nil
}

type session struct {
	sink *Sink
	tr   *http.Transport
	hc   *http.Client
}

// Send posts one entry as one request.
func (ss *session) Send(ctx context.Context, e domain.Entry) (retErr error) {
	body, size, err := ss.sink.requestBody(e.Body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ss.sink.url, body)
	if err != nil {
		_ = body.Close()
		return fmt.Errorf("new request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", ContentType)
	if ss.sink.gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := ss.hc.Do(req)
	if err != nil {
		return &domain.TransportError{Op: http.MethodPost, URL: ss.sink.url, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close response body: %w", cerr)
		}
	}()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return &domain.TransportError{Op: "read", URL: ss.sink.url, Err: err}
	}
	if ce := ss.sink.log.Check(zap.DebugLevel, "tsdb response"); ce != nil {
		ce.Write(zap.String("host", e.Host), zap.Int("status", resp.StatusCode), zap.Int64("bytes", n))
	}
	return nil
}

func (ss *session) Close() error {
	ss.tr.CloseIdleConnections()
	return nil
}

// requestBody returns the reader posted for payload. Entry bodies are immutable and
// sent as is; gzip output lives in a pooled buffer that goes back to the pool only
// when the transport closes the request body.
func (s *Sink) requestBody(payload []byte) (io.ReadCloser, int64, error) {
	if !s.gzip {
		return io.NopCloser(bytes.NewReader(payload)), int64(len(payload)), nil
	}
	buf := bufferPool.Get()
	if err := compress(buf, payload); err != nil {
		bufferPool.Put(buf)
		return nil, 0, err
	}
	return &pooledBody{Reader: bytes.NewReader(buf.Bytes()), buf: buf}, int64(buf.Len()), nil
}

type pooledBody struct {
	*bytes.Reader
	buf  *bytes.Buffer
	once sync.Once
}

func (b *pooledBody) Close() error {
	b.once.Do(func() { bufferPool.Put(b.buf) })
	return nil
}

func compress(dst *bytes.Buffer, payload []byte) error {
	zw, ok := gzipWriterPool.Get().(*gzip.Writer)
	if !ok {
		zw = gzip.NewWriter(io.Discard)
	}
	defer gzipWriterPool.Put(zw)
	zw.Reset(dst)
	if _, err := zw.Write(payload); err != nil {
		_ = zw.Close()
		return fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	return nil
}
