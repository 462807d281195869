package domain

import "strings"

// Label keys understood by the TSDB series layout.
const (
	LabelHost      = "host"
	LabelChannel   = "channel"
	LabelWhere     = "where"
	LabelPort      = "port"
	LabelModule    = "module"
	LabelDirection = "direction"
	LabelFreq      = "freq"
)

// Label is a single key/value pair attached to a sample.
type Label struct {
	Key   string
	Value string
}

// Sample is one gauge reading in Prometheus exposition format.
type Sample struct {
	Name   string
	Labels []Label
	Value  string
}

// NewSample builds a sample from alternating key/value label arguments.
func NewSample(name, value string, kv ...string) Sample {
	labels := make([]Label, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		labels = append(labels, Label{Key: kv[i], Value: kv[i+1]})
	}
	return Sample{Name: name, Labels: labels, Value: value}
}

// Label returns the value of key and whether the label is present.
func (s Sample) Label(key string) (string, bool) {
	for _, l := range s.Labels {
		if l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

// String renders the sample as `name{k1="v1",k2="v2"} value`.
func (s Sample) String() string {
	var b strings.Builder
	s.writeTo(&b)
	return b.String()
}

func (s Sample) writeTo(b *strings.Builder) {
	b.WriteString(s.Name)
	b.WriteByte('{')
	for i, l := range s.Labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Key)
		b.WriteString(`="`)
		b.WriteString(labelEscaper.Replace(l.Value))
		b.WriteByte('"')
	}
	b.WriteString("} ")
	b.WriteString(strings.TrimSpace(lineBreaks.Replace(s.Value)))
}

var (
	labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
	lineBreaks   = strings.NewReplacer("\n", " ", "\r", " ")
)

// Render joins samples into one newline-separated exposition block.
func Render(samples []Sample) string {
	var b strings.Builder
	for i, s := range samples {
		if i > 0 {
			b.WriteByte('\n')
		}
		s.writeTo(&b)
	}
	return b.String()
}
