// Package metrics регистрирует метрики Prometheus сервиса подписок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "entitlements"

// Metrics — набор счётчиков и гистограмм жизненного цикла подписок.
type Metrics struct {
	SweepRuns          prometheus.Counter
	SweepDuration      prometheus.Histogram
	PurgedInstances    prometheus.Counter
	FailedGroups       prometheus.Counter
	AttemptsConsumed   prometheus.Counter
	QuotaRejections    prometheus.Counter
	Activations        *prometheus.CounterVec
	NotificationsSent  *prometheus.CounterVec
	NotificationsError *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New регистрирует метрики в reg. Для тестов передаётся prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SweepRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Number of completed sweep passes.",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of sweep passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		PurgedInstances: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_instances_total",
			Help:      "Expired subscription instances deleted.",
		}),
		FailedGroups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_failed_groups_total",
			Help:      "Account groups whose sweep transaction failed.",
		}),
		AttemptsConsumed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_consumed_total",
			Help:      "Exam attempts recorded.",
		}),
		QuotaRejections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Exam attempts rejected because the quota is exhausted.",
		}),
		Activations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activations_total",
			Help:      "Subscription activations by source.",
		}, []string{"source"}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notifications delivered by channel.",
		}, []string{"channel"}),
		NotificationsError: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that failed after retries by channel.",
		}, []string{"channel"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status.",
		}, []string{"method", "route", "status"}),
	}
}

// NewNoop возвращает метрики в отдельном реестре, не попадающем в /metrics.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}
