package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the auth counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	UsersCreated         *prometheus.CounterVec
	CodesIssued          *prometheus.CounterVec
	CodeVerifyFailures   *prometheus.CounterVec
	LoginFailures        *prometheus.CounterVec
	DeliveryFailures     prometheus.Counter
	IssuanceRateLimited  prometheus.Counter
	PendingSweptTotal    prometheus.Counter
	PendingRegistrations prometheus.Gauge
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takenotes_auth_users_created_total",
			Help: "Total number of users created, by identity provider",
		}, []string{"provider"}),
		CodesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takenotes_auth_codes_issued_total",
			Help: "Total number of one-time codes issued, by flow",
		}, []string{"flow"}),
		CodeVerifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takenotes_auth_code_verification_failures_total",
			Help: "Total number of rejected one-time code confirmations, by reason",
		}, []string{"reason"}),
		LoginFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takenotes_auth_login_failures_total",
			Help: "Total number of failed logins, by method",
		}, []string{"method"}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "takenotes_auth_code_delivery_failures_total",
			Help: "Total number of one-time code emails that could not be delivered",
		}),
		IssuanceRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "takenotes_auth_code_issuance_rate_limited_total",
			Help: "Total number of code issuances rejected by the resend interval",
		}),
		PendingSweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "takenotes_auth_pending_swept_total",
			Help: "Total number of expired pending registrations removed by the sweeper",
		}),
		PendingRegistrations: factory.NewGauge(prometheus.GaugeOpts{
			Name: "takenotes_auth_pending_registrations",
			Help: "Pending registrations held in memory after the last sweep",
		}),
	}
}

func (m *Metrics) IncrementUsersCreated(provider string) {
	if m == nil {
		return
	}
	m.UsersCreated.WithLabelValues(provider).Inc()
}

func (m *Metrics) IncrementCodesIssued(flow string) {
	if m == nil {
		return
	}
	m.CodesIssued.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncrementCodeVerifyFailures(reason string) {
	if m == nil {
		return
	}
	m.CodeVerifyFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementLoginFailures(method string) {
	if m == nil {
		return
	}
	m.LoginFailures.WithLabelValues(method).Inc()
}

func (m *Metrics) IncrementDeliveryFailures() {
	if m == nil {
		return
	}
	m.DeliveryFailures.Inc()
}

func (m *Metrics) IncrementIssuanceRateLimited() {
	if m == nil {
		return
	}
	m.IssuanceRateLimited.Inc()
}

func (m *Metrics) RecordSweep(removed, remaining int) {
	if m == nil {
		return
	}
	m.PendingSweptTotal.Add(float64(removed))
	m.PendingRegistrations.Set(float64(remaining))
}
