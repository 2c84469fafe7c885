package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	alertsTriggered   *prometheus.CounterVec
	helpersPinged     *prometheus.CounterVec
	activeAlerts      prometheus.Gauge
	locationPushes    prometheus.Counter
	snapshotsRejected prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge, prometheus.Counter, prometheus.Counter) {
	alerts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Number of alerts created by the coordinator",
		},
		[]string{"alert_type"},
	)
	pinged := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpers_pinged_total",
			Help: "Number of candidate helpers pinged over the push channel",
		},
		[]string{"acknowledged"},
	)
	active := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_alerts",
			Help: "Number of alerts currently owned by a live coordinator",
		},
	)
	pushes := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "location_pushes_total",
			Help: "Number of periodic alert location refreshes written to the store",
		},
	)
	rejected := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshots_rejected_total",
			Help: "Number of authoritative snapshots rejected by the lifecycle validator",
		},
	)
	return alerts, pinged, active, pushes, rejected
}

func init() {
	alertsTriggered, helpersPinged, activeAlerts, locationPushes, snapshotsRejected = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers coordinator metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(alertsTriggered, helpersPinged, activeAlerts, locationPushes, snapshotsRejected)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	alertsTriggered, helpersPinged, activeAlerts, locationPushes, snapshotsRejected = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
