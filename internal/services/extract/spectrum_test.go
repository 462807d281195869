package extract

import (
	"testing"
)

const spectrumFixture = `{"czechlight-roadm-device:spectrum-scan":{
	"common-in":{"lowest-frequency":"191325.0","step":"6.25","p":["-50.1","-49.8","-30"]},
	"common-out":{"lowest-frequency":191325,"step":12.5,"p":[-60]}
}}`

func TestExtractSpectrum(t *testing.T) {
	ds := snap(t, spectrumFixture)
	assertLines(t, ExtractSpectrum(ds, "roadm", nil),
		`spectrum_scan{host="roadm",freq="191325.0",where="common-in"} -50.1`,
		`spectrum_scan{host="roadm",freq="191331.25",where="common-in"} -49.8`,
		`spectrum_scan{host="roadm",freq="191337.5",where="common-in"} -30`,
		`spectrum_scan{host="roadm",freq="191325.0",where="common-out"} -60`,
	)
}

func TestExtractSpectrum_Dedup(t *testing.T) {
	var cache SpectrumCache

	first := ExtractSpectrum(snap(t, spectrumFixture), "roadm", &cache)
	if len(first) != 4 {
		t.Fatalf("first call: %d samples, want 4", len(first))
	}
	if again := ExtractSpectrum(snap(t, spectrumFixture), "roadm", &cache); len(again) != 0 {
		t.Fatalf("identical spectrum must be suppressed, got %d samples", len(again))
	}

	cache.Reset()
	if after := ExtractSpectrum(snap(t, spectrumFixture), "roadm", &cache); len(after) != 4 {
		t.Fatalf("after reset: %d samples, want 4", len(after))
	}

	changed := snap(t, `{"czechlight-roadm-device:spectrum-scan":{
		"common-in":{"lowest-frequency":"191325.0","step":"6.25","p":["-50.0"]}}}`)
	if got := ExtractSpectrum(changed, "roadm", &cache); len(got) != 1 {
		t.Fatalf("changed spectrum: %d samples, want 1", len(got))
	}
}

func TestExtractSpectrum_AbsentOrBroken(t *testing.T) {
	var cache SpectrumCache
	if got := ExtractSpectrum(snap(t, `{}`), "h", &cache); got != nil {
		t.Fatalf("absent: %v", lines(got))
	}
	if got := ExtractSpectrum(snap(t, `{"czechlight-roadm-device:spectrum-scan":null}`), "h", &cache); got != nil {
		t.Fatalf("null: %v", lines(got))
	}
	broken := snap(t, `{"czechlight-roadm-device:spectrum-scan":{
		"common-in":{"lowest-frequency":"x","step":"1","p":["1"]},
		"common-out":{"lowest-frequency":"10","step":"1","p":["2"]}}}`)
	assertLines(t, ExtractSpectrum(broken, "h", &cache),
		`spectrum_scan{host="h",freq="10.0",where="common-out"} 2`,
	)
}

func TestFormatFreq(t *testing.T) {
	a, b := 0.1, 0.2
	cases := []struct {
		in   float64
		want string
	}{
		{191325, "191325.0"},
		{191331.25, "191331.25"},
		{0, "0.0"},
		{a + b, "0.30000000000000004"},
		{1e16, "1e+16"},
		{0.00001, "1e-05"},
	}
	for _, c := range cases {
		if got := formatFreq(c.in); got != c.want {
			t.Errorf("formatFreq(%v)=%q want %q", c.in, got, c.want)
		}
	}
}
