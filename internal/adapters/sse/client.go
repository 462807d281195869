package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/ports"
)

// Client opens event streams over HTTP.
type Client struct {
	hc *http.Client
}

var _ ports.EventSource = (*Client)(nil)

// New returns a Client. When hc is nil, a client without any read or total timeout is used:
// devices may stay silent for arbitrarily long between events.
func New(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Transport: newStreamTransport()}
	}
	return &Client{hc: hc}
}

func newStreamTransport() *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}
	tr := base.Clone()
	tr.DialContext = (&net.Dialer{KeepAlive: 30 * time.Second}).DialContext
	tr.ResponseHeaderTimeout = 0
	tr.IdleConnTimeout = 0
	tr.DisableCompression = true
	return tr
}

// Open issues the GET request and returns a stream positioned at the first event.
func (c *Client) Open(ctx context.Context, url, lastEventID string) (ports.EventStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "text/event-stream")
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: http.MethodGet, URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &domain.TransportError{
			Op:  http.MethodGet,
			URL: url,
			Err: fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}
	return &stream{body: resp.Body, dec: NewDecoder(resp.Body), url: url}, nil
}

type stream struct {
	body io.ReadCloser
	dec  *Decoder
	url  string
}

func (s *stream) Next() (string, error) {
	event, err := s.dec.Next()
	switch {
	case err == nil:
		return event, nil
	case errors.Is(err, io.EOF):
		return "", domain.ErrStreamClosed
	case errors.Is(err, domain.ErrMalformedStream):
		return "", err
	default:
		return "", &domain.TransportError{Op: "read", URL: s.url, Err: err}
	}
}

func (s *stream) Close() error {
	return s.body.Close()
}
