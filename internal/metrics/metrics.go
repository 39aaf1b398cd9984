package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Recorder = (*Metrics)(nil)

// Metrics holds the Prometheus collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	VerifyTotal               *prometheus.CounterVec
	PasswordWritesTotal       *prometheus.CounterVec
	UsersDeletedTotal         *prometheus.CounterVec
	RenamesTotal              *prometheus.CounterVec
	RenameDuration            prometheus.Histogram
	NotificationFailuresTotal *prometheus.CounterVec
}

// Init returns a Prometheus recorder when enabled and a no-op otherwise.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}
	return New(prometheus.NewRegistry())
}

// New registers all collectors on reg. Each Manager gets its own registry so
// tests can build as many as they like.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		VerifyTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctmgr_password_verify_total",
				Help: "Password verifications by deciding store and verdict",
			},
			[]string{"store", "verdict"},
		),
		PasswordWritesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctmgr_password_writes_total",
				Help: "Password writes by store and whether a record was created",
			},
			[]string{"store", "result"}, // created, updated
		),
		UsersDeletedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctmgr_users_deleted_total",
				Help: "Accounts removed from a credential store",
			},
			[]string{"store"},
		),
		RenamesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctmgr_uid_renames_total",
				Help: "Identity renames by outcome",
			},
			[]string{"result"}, // success, error
		),
		RenameDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "acctmgr_uid_rename_duration_seconds",
				Help:    "Time spent in the rename transaction",
				Buckets: prometheus.DefBuckets,
			},
		),
		NotificationFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "acctmgr_notification_failures_total",
				Help: "Listener failures by event",
			},
			[]string{"event"},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordVerify(store, verdict string) {
	m.VerifyTotal.WithLabelValues(store, verdict).Inc()
}

func (m *Metrics) RecordPasswordWrite(store string, created bool) {
	result := "updated"
	if created {
		result = "created"
	}
	m.PasswordWritesTotal.WithLabelValues(store, result).Inc()
}

func (m *Metrics) RecordUserDeleted(store string) {
	m.UsersDeletedTotal.WithLabelValues(store).Inc()
}

func (m *Metrics) RecordRename(success bool, took time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	m.RenamesTotal.WithLabelValues(result).Inc()
	m.RenameDuration.Observe(took.Seconds())
}

func (m *Metrics) RecordNotificationFailure(event string) {
	m.NotificationFailuresTotal.WithLabelValues(event).Inc()
}
