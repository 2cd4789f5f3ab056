package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshSkipped = "skipped"
)

// Notification outcomes
const (
	NotificationShown      = "shown"
	NotificationSuppressed = "suppressed"
	NotificationSwallowed  = "swallowed"
)

// Metrics holds the session client collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RefreshTotal       *prometheus.CounterVec
	RetryTotal         prometheus.Counter
	ForcedLogoutTotal  prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg when reg is not nil
func New(reg prometheus.Registerer, appName string) *Metrics {
	labels := prometheus.Labels{"app": appName}
	m := &Metrics{
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "session_token_refresh_total",
				Help:        "Access token refresh attempts by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		RetryTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "session_request_retry_total",
			Help:        "Requests re-issued after a token refresh",
			ConstLabels: labels,
		}),
		ForcedLogoutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "session_forced_logout_total",
			Help:        "Sessions cleared because authentication could not be recovered",
			ConstLabels: labels,
		}),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "session_notifications_total",
				Help:        "Failure notifications by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RefreshTotal, m.RetryTotal, m.ForcedLogoutTotal, m.NotificationsTotal)
	}
	return m
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.RetryTotal.Inc()
}

func (m *Metrics) ForcedLogout() {
	if m == nil {
		return
	}
	m.ForcedLogoutTotal.Inc()
}

func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(outcome).Inc()
}
