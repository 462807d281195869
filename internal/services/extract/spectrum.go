package extract

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/vshulcz/Lumectra/internal/domain"
)

const keySpectrum = "czechlight-roadm-device:spectrum-scan"

var spectrumPoints = []string{"common-in", "common-out"}

// SpectrumCache remembers the last spectrum-scan subtree emitted on one connection.
// The zero value is empty. It is owned by a single reader and is not safe for concurrent use.
type SpectrumCache struct {
	last any
	set  bool
}

// Changed reports whether tree differs from the cached one and, if so, caches it.
func (c *SpectrumCache) Changed(tree any) bool {
	if c.set && reflect.DeepEqual(c.last, tree) {
		return false
	}
	c.last = tree
	c.set = true
	return true
}

// Reset forgets the cached subtree.
func (c *SpectrumCache) Reset() {
	c.last = nil
	c.set = false
}

// ExtractSpectrum emits one spectrum_scan sample per power reading of each sweep.
// Nothing is emitted when the subtree is absent or equal to the one cached in c.
// A nil cache disables deduplication.
func ExtractSpectrum(ds domain.Snapshot, host string, c *SpectrumCache) []domain.Sample {
	tree, ok := ds[keySpectrum]
	if !ok || tree == nil {
		return nil
	}
	if c != nil && !c.Changed(tree) {
		return nil
	}
	scan, ok := tree.(map[string]any)
	if !ok {
		return nil
	}

	var out []domain.Sample
	for _, point := range spectrumPoints {
		out = append(out, sweep(scan[point], host, point)...)
	}
	return out
}

func sweep(raw any, host, point string) []domain.Sample {
	d, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	lowest, ok := number(d["lowest-frequency"])
	if !ok {
		return nil
	}
	step, ok := number(d["step"])
	if !ok {
		return nil
	}
	readings, ok := d["p"].([]any)
	if !ok {
		return nil
	}

	out := make([]domain.Sample, 0, len(readings))
	for i, p := range readings {
		v, ok := scalar(p)
		if !ok {
			continue
		}
		freq := float64(i)*step + lowest
		out = append(out, domain.NewSample(MetricSpectrumScan, v,
			domain.LabelHost, host,
			domain.LabelFreq, formatFreq(freq),
			domain.LabelWhere, point,
		))
	}
	return out
}

// formatFreq prints a float the way existing series were labelled: shortest
// round-trip digits, with ".0" kept on integral values.
func formatFreq(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); f != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
