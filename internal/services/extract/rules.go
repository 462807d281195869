package extract

import (
	"github.com/vshulcz/Lumectra/internal/domain"
)

const (
	keyMediaChannels     = "czechlight-roadm-device:media-channels"
	keyRoadmAggregate    = "czechlight-roadm-device:aggregate-power"
	keyLine              = "czechlight-roadm-device:line"
	keyCoherentAggregate = "czechlight-coherent-add-drop:aggregate-power"
	keyCoherentClients   = "czechlight-coherent-add-drop:client-ports"
	prefixBidiAmp        = "czechlight-bidi-amp:"
	prefixInlineAmp      = "czechlight-inline-amp:"
)

var (
	mediaPoints        = []string{"common-in", "common-out", "leaf-in", "leaf-out"}
	roadmAggPoints     = []string{"common-in", "common-out", "express-in", "express-out"}
	coherentAggPoints  = []string{"drop", "express-in", "express-out"}
	bidiBands          = []string{"c-band", "narrow-1572"}
	bidiDirections     = []string{"east-to-west", "west-to-east"}
	inlineDirections   = []string{"west-to-east", "east-to-west"}
	amplifierPortNames = []string{"input", "output"}
)

func power(host, channel, where, value string) domain.Sample {
	return domain.NewSample(MetricOpticalPower, value,
		domain.LabelHost, host,
		domain.LabelChannel, channel,
		domain.LabelWhere, where,
	)
}

func mediaChannels(ds domain.Snapshot, host string) ([]domain.Sample, error) {
	channels, ok, err := list(ds, keyMediaChannels)
	if err != nil || !ok {
		return nil, err
	}

	var out []domain.Sample
	for _, item := range channels {
		ch, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, ok := scalar(ch["channel"])
		if !ok {
			continue
		}
		readings, ok := ch["power"].(map[string]any)
		if !ok {
			continue
		}
		for _, point := range mediaPoints {
			value, ok := scalar(readings[point])
			if !ok {
				continue
			}
			s := power(host, name, point, value)
			var port string
			switch point {
			case "leaf-in":
				port, ok = leaf(ch, "add", "port")
			case "leaf-out":
				port, ok = leaf(ch, "drop", "port")
			default:
				ok = false
			}
			if ok {
				s.Labels = append(s.Labels, domain.Label{Key: domain.LabelPort, Value: PlainPort(port)})
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func roadmAggregatePower(ds domain.Snapshot, host string) ([]domain.Sample, error) {
	agg, ok, err := object(ds, keyRoadmAggregate)
	if err != nil || !ok {
		return nil, err
	}
	var out []domain.Sample
	for _, point := range roadmAggPoints {
		if v, ok := scalar(agg[point]); ok {
			out = append(out, power(host, "", point, v))
		}
	}
	return out, nil
}

func coherentAddDrop(ds domain.Snapshot, host string) ([]domain.Sample, error) {
	agg, ok, err := object(ds, keyCoherentAggregate)
	if err != nil || !ok {
		return nil, err
	}
	var out []domain.Sample
	for _, point := range coherentAggPoints {
		if v, ok := scalar(agg[point]); ok {
			out = append(out, power(host, "", point, v))
		}
	}

	clients, _, err := list(ds, keyCoherentClients)
	if err != nil {
		return nil, err
	}
	for _, item := range clients {
		port, ok := leaf(item, "port")
		if !ok {
			continue
		}
		if v, ok := leaf(item, "input-power"); ok {
			out = append(out, power(host, "", port, v))
		}
	}
	return out, nil
}

func lineOSC(ds domain.Snapshot, host string) ([]domain.Sample, error) {
	line, ok, err := object(ds, keyLine)
	if err != nil || !ok {
		return nil, err
	}
	osc, ok, err := object(line, "osc")
	if err != nil || !ok {
		return nil, err
	}
	var out []domain.Sample
	for _, dir := range []string{"rx", "tx"} {
		if v, ok := scalar(osc[dir+"-power"]); ok {
			out = append(out, power(host, "OSC", "LINE-"+dir, v))
		}
	}
	return out, nil
}

// bidiAmp reports each band independently; a malformed band does not hide the other one.
func bidiAmp(ds domain.Snapshot, host string) ([]domain.Sample, error) {
	var out []domain.Sample
	for _, band := range bidiBands {
		agg, ok, err := object(ds, prefixBidiAmp+band)
		if err != nil || !ok {
			continue
		}
		out = append(out, pumpSamples(agg, host, band)...)
		for _, dir := range bidiDirections {
			for _, port := range amplifierPortNames {
				if v, ok := leaf(agg, dir, port+"-power"); ok {
					out = append(out, power(host, band, dir+"-"+port, v))
				}
			}
		}
	}
	return out, nil
}

// pumpSamples emits both set-point series. Only one control mode is active at a
// time; the inactive one is reported as 0 so both series stay continuous.
func pumpSamples(agg map[string]any, host, band string) []domain.Sample {
	pump, ok := agg["pump"].(map[string]any)
	if !ok {
		return nil
	}
	current, gain := "0", "0"
	if v, ok := scalar(pump["manual-current"]); ok {
		current = v
	} else if v, ok := scalar(pump["agc"]); ok {
		gain = v
	}

	labels := []string{domain.LabelHost, host, domain.LabelChannel, band}
	out := []domain.Sample{
		domain.NewSample(MetricPumpCurrentSet, current, labels...),
		domain.NewSample(MetricPumpGainSet, gain, labels...),
	}
	if v, ok := scalar(pump["measured-current"]); ok {
		out = append(out, domain.NewSample(MetricRealPumpCurrent, v, labels...))
	}
	return out
}

func inlineAmp(ds domain.Snapshot, host string) ([]domain.Sample, error) {
	var out []domain.Sample
	for _, dir := range inlineDirections {
		agg, ok, err := object(ds, prefixInlineAmp+dir)
		if err != nil || !ok {
			continue
		}
		if v, ok := scalar(agg["output-voa"]); ok {
			out = append(out, domain.NewSample(MetricOutputVOA, v,
				domain.LabelHost, host,
				domain.LabelChannel, "",
				domain.LabelWhere, dir,
			))
		}
		for _, port := range amplifierPortNames {
			if v, ok := leaf(agg, "optical-power", port); ok {
				out = append(out, power(host, "", dir+"-"+shortPort(port), v))
			}
		}
	}
	return out, nil
}

func shortPort(port string) string {
	if port == "input" {
		return "in"
	}
	return "out"
}
