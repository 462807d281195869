// Package extract maps YANG push datastore snapshots onto flat Prometheus samples.
//
// Every measurement subtree is handled by its own Rule. A rule that meets an
// unexpected shape contributes nothing; the remaining rules are unaffected.
package extract

import (
	"errors"
	"fmt"

	"github.com/vshulcz/Lumectra/internal/domain"
)

// Metric names.
const (
	MetricOpticalPower    = "optical_power"
	MetricPumpCurrentSet  = "pump_current_set"
	MetricPumpGainSet     = "pump_gain_set"
	MetricRealPumpCurrent = "real_pump_current"
	MetricOutputVOA       = "output_voa"
	MetricSpectrumScan    = "spectrum_scan"
)

// Rule extracts samples from one optional subtree of a snapshot.
type Rule struct {
	Name string
	Fn   func(ds domain.Snapshot, host string) ([]domain.Sample, error)
}

// Apply runs the rule. Any failure, including a panic on an unexpected node type,
// is reported as a *domain.SnapshotShapeError prefixed with the rule name and
// discards the samples gathered so far.
func (r Rule) Apply(ds domain.Snapshot, host string) (samples []domain.Sample, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			samples, err = nil, &domain.SnapshotShapeError{Path: r.Name, Reason: fmt.Sprint(rec)}
		}
	}()
	samples, err = r.Fn(ds, host)
	if err == nil {
		return samples, nil
	}
	var se *domain.SnapshotShapeError
	if errors.As(err, &se) {
		return nil, &domain.SnapshotShapeError{Path: r.Name + ":" + se.Path, Reason: se.Reason}
	}
	return nil, &domain.SnapshotShapeError{Path: r.Name, Reason: err.Error()}
}

var defaultRules = []Rule{
	{Name: "media-channels", Fn: mediaChannels},
	{Name: "roadm-aggregate-power", Fn: roadmAggregatePower},
	{Name: "coherent-add-drop", Fn: coherentAddDrop},
	{Name: "line-osc", Fn: lineOSC},
	{Name: "bidi-amp", Fn: bidiAmp},
	{Name: "inline-amp", Fn: inlineAmp},
}

// Rules returns the measurement rules in emission order.
func Rules() []Rule {
	return append([]Rule(nil), defaultRules...)
}

// Extract runs every rule against ds. It never fails: rules that cannot read
// their subtree are skipped.
func Extract(ds domain.Snapshot, host string) []domain.Sample {
	var out []domain.Sample
	for _, r := range defaultRules {
		samples, err := r.Apply(ds, host)
		if err != nil {
			continue
		}
		out = append(out, samples...)
	}
	return out
}
