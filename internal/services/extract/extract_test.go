package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/vshulcz/Lumectra/internal/domain"
)

func snap(t *testing.T, js string) domain.Snapshot {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(js)))
	dec.UseNumber()
	var ds domain.Snapshot
	if err := dec.Decode(&ds); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return ds
}

func lines(samples []domain.Sample) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.String())
	}
	return out
}

func assertLines(t *testing.T, got []domain.Sample, want ...string) {
	t.Helper()
	g := lines(got)
	if strings.Join(g, "\n") != strings.Join(want, "\n") {
		t.Fatalf("samples mismatch\n got:\n  %s\nwant:\n  %s", strings.Join(g, "\n  "), strings.Join(want, "\n  "))
	}
}

func TestExtract_AggregateOnly(t *testing.T) {
	ds := snap(t, `{"czechlight-roadm-device:aggregate-power":{
		"common-in":"-3.5","common-out":"1.25","express-in":"-7.0","express-out":"-8.1"}}`)

	assertLines(t, Extract(ds, "roadm1"),
		`optical_power{host="roadm1",channel="",where="common-in"} -3.5`,
		`optical_power{host="roadm1",channel="",where="common-out"} 1.25`,
		`optical_power{host="roadm1",channel="",where="express-in"} -7.0`,
		`optical_power{host="roadm1",channel="",where="express-out"} -8.1`,
	)
}

func TestExtract_EmptySnapshot(t *testing.T) {
	if got := Extract(domain.Snapshot{}, "x"); len(got) != 0 {
		t.Fatalf("expected no samples, got %v", lines(got))
	}
}

func TestExtract_MediaChannels(t *testing.T) {
	ds := snap(t, `{"czechlight-roadm-device:media-channels":[
		{"channel":"1","power":{"common-in":-12.3,"leaf-out":"-20.5"},"drop":{"port":"E3"}},
		{"channel":"2","power":{"leaf-in":"-4.0","common-out":"-1"},"add":{"port":"7"}},
		{"channel":"3","power":{"leaf-in":"-4.4"}},
		{"power":{"common-in":"1"}},
		"garbage"
	]}`)

	assertLines(t, Extract(ds, "dev1"),
		`optical_power{host="dev1",channel="1",where="common-in"} -12.3`,
		`optical_power{host="dev1",channel="1",where="leaf-out",port="3"} -20.5`,
		`optical_power{host="dev1",channel="2",where="common-out"} -1`,
		`optical_power{host="dev1",channel="2",where="leaf-in",port="7"} -4.0`,
		`optical_power{host="dev1",channel="3",where="leaf-in"} -4.4`,
	)
}

func TestExtract_CoherentAddDrop(t *testing.T) {
	ds := snap(t, `{
		"czechlight-coherent-add-drop:aggregate-power":{"drop":"-1","express-in":"-2","express-out":"-3"},
		"czechlight-coherent-add-drop:client-ports":[{"port":"E1","input-power":"-9.9"},{"port":"E2"}]
	}`)
	assertLines(t, Extract(ds, "cad"),
		`optical_power{host="cad",channel="",where="drop"} -1`,
		`optical_power{host="cad",channel="",where="express-in"} -2`,
		`optical_power{host="cad",channel="",where="express-out"} -3`,
		`optical_power{host="cad",channel="",where="E1"} -9.9`,
	)
}

func TestExtract_LineOSC(t *testing.T) {
	ds := snap(t, `{"czechlight-roadm-device:line":{"osc":{"rx-power":"-30.1","tx-power":"0.5"}}}`)
	assertLines(t, Extract(ds, "r"),
		`optical_power{host="r",channel="OSC",where="LINE-rx"} -30.1`,
		`optical_power{host="r",channel="OSC",where="LINE-tx"} 0.5`,
	)
}

func TestExtract_PumpModes(t *testing.T) {
	tests := []struct {
		name string
		pump string
		want []string
	}{
		{
			name: "manual current",
			pump: `{"manual-current":"120.5"}`,
			want: []string{
				`pump_current_set{host="amp",channel="c-band"} 120.5`,
				`pump_gain_set{host="amp",channel="c-band"} 0`,
			},
		},
		{
			name: "closed loop gain",
			pump: `{"agc":"17.0","measured-current":"99"}`,
			want: []string{
				`pump_current_set{host="amp",channel="c-band"} 0`,
				`pump_gain_set{host="amp",channel="c-band"} 17.0`,
				`real_pump_current{host="amp",channel="c-band"} 99`,
			},
		},
		{
			name: "neither",
			pump: `{}`,
			want: []string{
				`pump_current_set{host="amp",channel="c-band"} 0`,
				`pump_gain_set{host="amp",channel="c-band"} 0`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := snap(t, `{"czechlight-bidi-amp:c-band":{"pump":`+tt.pump+`}}`)
			assertLines(t, Extract(ds, "amp"), tt.want...)
		})
	}
}

func TestExtract_BidiAmpBandsIsolated(t *testing.T) {
	ds := snap(t, `{
		"czechlight-bidi-amp:c-band":"broken",
		"czechlight-bidi-amp:narrow-1572":{
			"east-to-west":{"input-power":"-10","output-power":"3"},
			"west-to-east":{"input-power":"-11"}
		}
	}`)
	assertLines(t, Extract(ds, "amp"),
		`optical_power{host="amp",channel="narrow-1572",where="east-to-west-input"} -10`,
		`optical_power{host="amp",channel="narrow-1572",where="east-to-west-output"} 3`,
		`optical_power{host="amp",channel="narrow-1572",where="west-to-east-input"} -11`,
	)
}

func TestExtract_InlineAmp(t *testing.T) {
	ds := snap(t, `{
		"czechlight-inline-amp:west-to-east":{"output-voa":"2.5","optical-power":{"input":"-20","output":"1"}},
		"czechlight-inline-amp:east-to-west":{"optical-power":{"output":"0.1"}}
	}`)
	assertLines(t, Extract(ds, "ila"),
		`output_voa{host="ila",channel="",where="west-to-east"} 2.5`,
		`optical_power{host="ila",channel="",where="west-to-east-in"} -20`,
		`optical_power{host="ila",channel="",where="west-to-east-out"} 1`,
		`optical_power{host="ila",channel="",where="east-to-west-out"} 0.1`,
	)
}

func TestExtract_ShapeErrorsStayLocal(t *testing.T) {
	ds := snap(t, `{
		"czechlight-roadm-device:media-channels":{"not":"a list"},
		"czechlight-roadm-device:line":[],
		"czechlight-coherent-add-drop:aggregate-power":{"drop":"-1"},
		"czechlight-coherent-add-drop:client-ports":"oops",
		"czechlight-roadm-device:aggregate-power":{"common-in":"-1"}
	}`)
	assertLines(t, Extract(ds, "h"),
		`optical_power{host="h",channel="",where="common-in"} -1`,
	)
}

func TestRules_ReportShapeErrors(t *testing.T) {
	ds := snap(t, `{"czechlight-roadm-device:media-channels":{}}`)
	byName := map[string]Rule{}
	for _, r := range Rules() {
		byName[r.Name] = r
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) != 6 {
		t.Fatalf("rules=%v", names)
	}

	got, err := byName["media-channels"].Apply(ds, "h")
	if !errors.Is(err, domain.ErrSnapshotShape) || got != nil {
		t.Fatalf("Apply=(%v,%v) want shape error", got, err)
	}
	got, err = byName["line-osc"].Apply(ds, "h")
	if err != nil || got != nil {
		t.Fatalf("absent subtree must be silent: (%v,%v)", got, err)
	}
}

func TestRule_ApplyTagsFailuresWithRuleName(t *testing.T) {
	partial := []domain.Sample{domain.NewSample(MetricOpticalPower, "1", domain.LabelHost, "h")}
	tests := []struct {
		name     string
		fn       func(domain.Snapshot, string) ([]domain.Sample, error)
		wantPath string
	}{
		{
			name: "plain error",
			fn: func(domain.Snapshot, string) ([]domain.Sample, error) {
				return partial, errors.New("boom")
			},
			wantPath: "custom",
		},
		{
			name: "shape error",
			fn: func(domain.Snapshot, string) ([]domain.Sample, error) {
				return partial, &domain.SnapshotShapeError{Path: "a/b", Reason: "not an object"}
			},
			wantPath: "custom:a/b",
		},
		{
			name: "panic",
			fn: func(domain.Snapshot, string) ([]domain.Sample, error) {
				panic("unexpected node")
			},
			wantPath: "custom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Rule{Name: "custom", Fn: tt.fn}.Apply(domain.Snapshot{}, "h")
			var se *domain.SnapshotShapeError
			if !errors.As(err, &se) || se.Path != tt.wantPath {
				t.Fatalf("err=%v want shape error at %q", err, tt.wantPath)
			}
			if got != nil {
				t.Fatalf("partial samples leaked: %v", got)
			}
		})
	}

	got, err := Rule{Name: "ok", Fn: func(domain.Snapshot, string) ([]domain.Sample, error) {
		return partial, nil
	}}.Apply(domain.Snapshot{}, "h")
	if err != nil || len(got) != 1 {
		t.Fatalf("Apply=(%v,%v)", got, err)
	}
}

func TestPlainPort(t *testing.T) {
	cases := map[string]string{"E3": "3", "3": "3", "": "", "E": "", "E12": "12"}
	for in, want := range cases {
		if got := PlainPort(in); got != want {
			t.Errorf("PlainPort(%q)=%q want %q", in, got, want)
		}
	}
}
