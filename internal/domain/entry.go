package domain

// Entry is the unit of delivery: every sample extracted from one snapshot of one device.
// It is written to the TSDB as a single request and is never split or merged.
type Entry struct {
	Host    string
	Samples []Sample
	Body    []byte
}

// NewEntry renders samples once so that every sink sees the same bytes.
func NewEntry(host string, samples []Sample) Entry {
	return Entry{
		Host:    host,
		Samples: samples,
		Body:    []byte(Render(samples)),
	}
}

// Len reports the number of samples carried by the entry.
func (e Entry) Len() int {
	return len(e.Samples)
}
