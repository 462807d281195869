package pusher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vshulcz/Lumectra/internal/adapters/queue/memory"
	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/ports"
)

type fakeSink struct {
	mu        sync.Mutex
	openErrs  []error
	failOn    map[string]bool
	opened    int
	closed    int
	sent      []string
	sessions  []int
	delivered chan struct{}
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Open(context.Context) (ports.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &fakeSession{sink: f, id: f.opened}, nil
}

type fakeSession struct {
	sink *fakeSink
	id   int
}

func (s *fakeSession) Send(_ context.Context, e domain.Entry) error {
	f := s.sink
	f.mu.Lock()
	defer f.mu.Unlock()
	body := string(e.Body)
	if f.failOn[body] {
		delete(f.failOn, body)
		return errors.New("connection reset")
	}
	f.sent = append(f.sent, body)
	f.sessions = append(f.sessions, s.id)
	if f.delivered != nil {
		f.delivered <- struct{}{}
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.sink.mu.Lock()
	s.sink.closed++
	s.sink.mu.Unlock()
	return nil
}

func entry(host, value string) domain.Entry {
	return domain.NewEntry(host, []domain.Sample{domain.NewSample("m", value, domain.LabelHost, host)})
}

func start(t *testing.T, p *Pusher) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-errc:
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Run did not stop")
		}
	}
}

func wait(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d entries delivered", i, n)
		}
	}
}

func TestPusher_DeliversInOrderOverOneSession(t *testing.T) {
	q := memory.New()
	sink := &fakeSink{delivered: make(chan struct{}, 8)}
	for _, v := range []string{"1", "2", "3"} {
		q.Enqueue(entry("a", v))
	}
	stop := start(t, New(q, sink))
	wait(t, sink.delivered, 3)
	stop()

	want := []string{`m{host="a"} 1`, `m{host="a"} 2`, `m{host="a"} 3`}
	for i, w := range want {
		if sink.sent[i] != w {
			t.Fatalf("sent[%d]=%q want %q", i, sink.sent[i], w)
		}
	}
	if sink.opened != 1 {
		t.Fatalf("opened=%d want 1", sink.opened)
	}
	if sink.closed != 1 {
		t.Fatalf("closed=%d want 1 on shutdown", sink.closed)
	}
}

func TestPusher_DropsFailedEntryAndReopens(t *testing.T) {
	q := memory.New()
	sink := &fakeSink{
		failOn:    map[string]bool{`m{host="a"} 2`: true},
		delivered: make(chan struct{}, 8),
	}
	for _, v := range []string{"1", "2", "3"} {
		q.Enqueue(entry("a", v))
	}
	core, logs := observer.New(zap.WarnLevel)
	stop := start(t, New(q, sink, WithRetryInterval(time.Millisecond), WithLogger(zap.New(core))))
	wait(t, sink.delivered, 2)
	stop()

	if len(sink.sent) != 2 || sink.sent[0] != `m{host="a"} 1` || sink.sent[1] != `m{host="a"} 3` {
		t.Fatalf("sent=%q", sink.sent)
	}
	if sink.sessions[0] != 1 || sink.sessions[1] != 2 {
		t.Fatalf("sessions=%v: entry after failure must go through a new session", sink.sessions)
	}
	if sink.opened != 2 || sink.closed != 2 {
		t.Fatalf("opened=%d closed=%d", sink.opened, sink.closed)
	}
	warns := logs.FilterMessage("push failed").All()
	if len(warns) != 1 {
		t.Fatalf("warn logs=%d want 1", len(warns))
	}
	if got := warns[0].ContextMap()["component"]; got != "pusher" {
		t.Fatalf("component=%v", got)
	}
}

func TestPusher_RetriesOpenUntilSinkIsUp(t *testing.T) {
	q := memory.New()
	down := errors.New("connection refused")
	sink := &fakeSink{
		openErrs:  []error{down, down, down},
		delivered: make(chan struct{}, 1),
	}
	q.Enqueue(entry("b", "7"))
	stop := start(t, New(q, sink, WithRetryInterval(time.Millisecond)))
	wait(t, sink.delivered, 1)
	stop()

	if sink.opened != 4 {
		t.Fatalf("opened=%d want 4", sink.opened)
	}
	if len(sink.sent) != 1 {
		t.Fatalf("sent=%q", sink.sent)
	}
}

type countingObs struct {
	ports.NopObservability
	mu     sync.Mutex
	pushed int
	bytes  int
	failed int
}

func (o *countingObs) EntryPushed(n int, _ time.Duration) {
	o.mu.Lock()
	o.pushed++
	o.bytes += n
	o.mu.Unlock()
}

func (o *countingObs) PushFailed() {
	o.mu.Lock()
	o.failed++
	o.mu.Unlock()
}

func TestPusher_Observability(t *testing.T) {
	q := memory.New()
	sink := &fakeSink{
		failOn:    map[string]bool{`m{host="a"} 1`: true},
		delivered: make(chan struct{}, 2),
	}
	q.Enqueue(entry("a", "1"))
	q.Enqueue(entry("a", "22"))
	obs := &countingObs{}
	stop := start(t, New(q, sink, WithRetryInterval(time.Millisecond), WithObservability(obs)))
	wait(t, sink.delivered, 1)
	stop()

	if obs.pushed != 1 || obs.failed != 1 || obs.bytes != len(`m{host="a"} 22`) {
		t.Fatalf("obs pushed=%d failed=%d bytes=%d", obs.pushed, obs.failed, obs.bytes)
	}
}

func TestPusher_StopsWhileIdle(t *testing.T) {
	sink := &fakeSink{}
	stop := start(t, New(memory.New(), sink))
	time.Sleep(10 * time.Millisecond)
	stop()
	if sink.opened != 1 || sink.closed != 1 {
		t.Fatalf("opened=%d closed=%d", sink.opened, sink.closed)
	}
}
