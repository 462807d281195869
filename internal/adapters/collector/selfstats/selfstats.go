// Package selfstats samples the collector's own process, runtime and host
// figures and feeds them into the delivery queue like any device.
package selfstats

import (
	"context"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/vshulcz/Lumectra/internal/domain"
	"github.com/vshulcz/Lumectra/internal/ports"
)

// Sample names emitted by the collector about itself.
const (
	GoHeapAlloc  = "lumectra_go_heap_alloc_bytes"
	GoSys        = "lumectra_go_sys_bytes"
	GoGoroutines = "lumectra_go_goroutines"
	GoNumGC      = "lumectra_go_gc_cycles"
	QueueEntries = "lumectra_self_queue_entries"
	ProcessRSS   = "lumectra_process_resident_bytes"
	ProcessCPU   = "lumectra_process_cpu_percent"
	HostMemTotal = "lumectra_host_memory_total_bytes"
	HostMemFree  = "lumectra_host_memory_available_bytes"
	HostCPU      = "lumectra_host_cpu_percent"
	PollCount    = "lumectra_selfstats_polls_total"
)

// Collector periodically samples its own process and enqueues the figures.
type Collector struct {
	host  string
	queue ports.EntryQueue
	log   *zap.Logger
	proc  *process.Process
	st    *stats
	stop  chan struct{}
	wg    sync.WaitGroup
}

// New returns a collector labelling its samples with host. An empty host falls back to the machine hostname.
func New(host string, q ports.EntryQueue, log *zap.Logger) *Collector {
	if host == "" {
		host, _ = os.Hostname()
	}
	if host == "" {
		host = "lumectra"
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Collector{
		host:  host,
		queue: q,
		log:   log.With(zap.String("component", "selfstats")),
		st:    newStats(),
		stop:  make(chan struct{}),
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil { // #nosec G115
		c.proc = p
	} else {
		c.log.Debug("process stats unavailable", zap.Error(err))
	}
	return c
}

// Start launches the runtime and system samplers. Every runtime tick enqueues one entry.
func (c *Collector) Start(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.Stop()
		var ms runtime.MemStats
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-t.C:
				runtime.ReadMemStats(&ms)
				c.st.SetGauge(GoHeapAlloc, float64(ms.HeapAlloc))
				c.st.SetGauge(GoSys, float64(ms.Sys))
				c.st.SetGauge(GoNumGC, float64(ms.NumGC))
				c.st.SetGauge(GoGoroutines, float64(runtime.NumGoroutine()))
				c.st.SetGauge(QueueEntries, float64(c.queue.Len()))
				c.st.AddCounter(PollCount, 1)
				c.flush()
			}
		}
	}()

	tSys := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer tSys.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-tSys.C:
				c.sampleSystem()
			}
		}
	}()

	return nil
}

func (c *Collector) sampleSystem() {
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		c.st.SetGauge(HostMemTotal, float64(vm.Total))
		c.st.SetGauge(HostMemFree, float64(vm.Available))
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		c.st.SetGauge(HostCPU, pct[0])
	}
	if c.proc == nil {
		return
	}
	if mi, err := c.proc.MemoryInfo(); err == nil && mi != nil {
		c.st.SetGauge(ProcessRSS, float64(mi.RSS))
	}
	if pct, err := c.proc.CPUPercent(); err == nil {
		c.st.SetGauge(ProcessCPU, pct)
	}
}

func (c *Collector) flush() {
	samples := c.Samples()
	if len(samples) == 0 {
		return
	}
	c.queue.Enqueue(domain.NewEntry(c.host, samples))
	c.log.Debug("self stats enqueued", zap.Int("samples", len(samples)))
}

// Samples renders the latest figures, sorted by name.
func (c *Collector) Samples() []domain.Sample {
	g, cnt := c.st.Snapshot()
	out := make([]domain.Sample, 0, len(g)+len(cnt))
	for name, v := range g {
		out = append(out, domain.NewSample(name, strconv.FormatFloat(v, 'g', -1, 64), domain.LabelHost, c.host))
	}
	for name, v := range cnt {
		out = append(out, domain.NewSample(name, strconv.FormatInt(v, 10), domain.LabelHost, c.host))
	}
	slices.SortFunc(out, func(a, b domain.Sample) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Stop signals every sampler goroutine to halt and waits for them to finish.
func (c *Collector) Stop() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	c.wg.Wait()
}
