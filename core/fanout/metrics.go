package fanout

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sendLatency      *prometheus.HistogramVec
	contactsNotified *prometheus.CounterVec
	deliveryRate     *prometheus.GaugeVec
	sendSuccess      prometheus.Counter
	sendFailure      prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.GaugeVec, prometheus.Counter, prometheus.Counter) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanout_send_latency_seconds",
			Help:    "Latency of contact notifications from send to terminal outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"alert_type"},
	)
	con := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_notified_total",
			Help: "Number of contact notification attempts",
		},
		[]string{"alert_type"},
	)
	rate := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fanout_delivery_rate",
			Help: "Fraction of contacts successfully notified in the last fan-out",
		},
		[]string{"alert_type"},
	)
	suc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_send_success_total",
			Help: "Number of successful SMS sends",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sms_send_failure_total",
			Help: "Number of failed SMS sends",
		},
	)
	return lat, con, rate, suc, fail
}

func init() {
	sendLatency, contactsNotified, deliveryRate, sendSuccess, sendFailure = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers fan-out metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(sendLatency, contactsNotified, deliveryRate, sendSuccess, sendFailure)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	sendLatency, contactsNotified, deliveryRate, sendSuccess, sendFailure = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
