package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for sign-in, registration and the
// admin route guard.
type Metrics struct {
	UsersCreated          prometheus.Counter
	SignInsTotal          *prometheus.CounterVec
	PasswordResetRequests *prometheus.CounterVec
	PasswordResets        *prometheus.CounterVec
	GuardDecisionsTotal   *prometheus.CounterVec
	SignInDurationMs      prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "storefront_users_created_total",
			Help: "Total number of accounts created",
		}),
		SignInsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_signins_total",
			Help: "Sign-in attempts by method and outcome",
		}, []string{"method", "outcome"}),
		PasswordResetRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_password_reset_requests_total",
			Help: "Password reset requests; matched is false for unknown addresses",
		}, []string{"matched"}),
		PasswordResets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_password_resets_total",
			Help: "Password reset completions by outcome",
		}, []string{"outcome"}),
		GuardDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_admin_guard_decisions_total",
			Help: "Admin route guard decisions",
		}, []string{"decision"}),
		SignInDurationMs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_signin_duration_ms",
			Help:    "Time to complete a sign-in, including enrichment and token issue",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}
}

func (m *Metrics) IncUsersCreated() {
	m.UsersCreated.Inc()
}

func (m *Metrics) ObserveSignIn(method string, success bool, durationMs float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.SignInsTotal.WithLabelValues(method, outcome).Inc()
	if success {
		m.SignInDurationMs.Observe(durationMs)
	}
}

func (m *Metrics) IncPasswordResetRequest(matched bool) {
	label := "false"
	if matched {
		label = "true"
	}
	m.PasswordResetRequests.WithLabelValues(label).Inc()
}

func (m *Metrics) IncPasswordReset(outcome string) {
	m.PasswordResets.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncGuardDecision(decision string) {
	m.GuardDecisionsTotal.WithLabelValues(decision).Inc()
}
