package metrics

import coremetrics "github.com/resqlink/resqlink/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSendOutcomes forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordSendOutcomes(records []coremetrics.SendRecord) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordSendOutcomes(records); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordAlertEvent forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordAlertEvent(rec coremetrics.AlertRecord) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordAlertEvent(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
