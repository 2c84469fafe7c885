package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/resqlink/resqlink/core/metrics"
	"github.com/resqlink/resqlink/core/model"
)

func TestPromSink_RecordsWithoutError(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	records := []coremetrics.SendRecord{
		{AlertID: "a1", AlertType: model.AlertMedical, Phone: "+91", Delivered: true, Segments: 1, Latency: 120 * time.Millisecond},
		{AlertID: "a1", AlertType: model.AlertMedical, Phone: "+92", Delivered: false, Segments: 2, Latency: 80 * time.Millisecond},
	}
	if err := sink.RecordSendOutcomes(records); err != nil {
		t.Fatalf("record sends: %v", err)
	}
	if err := sink.RecordAlertEvent(coremetrics.AlertRecord{
		Alert: model.Alert{ID: "a1", Type: model.AlertMedical},
		Event: "created",
		Time:  time.Now(),
	}); err != nil {
		t.Fatalf("record event: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"resqlink_notification_sends_total",
		"resqlink_notification_latency_seconds",
		"resqlink_alert_events_total",
	} {
		if !names[want] {
			t.Fatalf("metric %s not registered", want)
		}
	}
}

func TestNewPromSink_ReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("first sink: %v", err)
	}
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("second sink must reuse registered collectors: %v", err)
	}
}
