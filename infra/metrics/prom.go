package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/resqlink/resqlink/core/metrics"
)

// PromSink records alert and notification outcomes in Prometheus metrics.
type PromSink struct {
	sends       *prometheus.CounterVec
	sendLatency *prometheus.HistogramVec
	alertEvents *prometheus.CounterVec
}

// NewPromSink registers the sink collectors on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the
// collectors are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	sends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resqlink_notification_sends_total",
		Help: "Total number of contact notification sends",
	}, []string{"alert_type", "delivered"})
	sendLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resqlink_notification_latency_seconds",
		Help:    "Time to deliver one contact notification",
		Buckets: prometheus.DefBuckets,
	}, []string{"alert_type", "delivered"})
	alertEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resqlink_alert_events_total",
		Help: "Total number of alert lifecycle events",
	}, []string{"alert_type", "event"})

	if err := reg.Register(sends); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			sends = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(sendLatency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			sendLatency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(alertEvents); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			alertEvents = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{sends: sends, sendLatency: sendLatency, alertEvents: alertEvents}, nil
}

// RecordSendOutcomes increments the counters for each notification outcome.
func (s *PromSink) RecordSendOutcomes(records []coremetrics.SendRecord) error {
	for _, r := range records {
		delivered := strconv.FormatBool(r.Delivered)
		s.sends.WithLabelValues(r.AlertType.String(), delivered).Inc()
		s.sendLatency.WithLabelValues(r.AlertType.String(), delivered).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordAlertEvent increments the alert lifecycle event counter.
func (s *PromSink) RecordAlertEvent(rec coremetrics.AlertRecord) error {
	s.alertEvents.WithLabelValues(rec.Alert.Type.String(), rec.Event).Inc()
	return nil
}
