// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Keystone application metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthOutcomes    *prometheus.CounterVec
	HashDuration    *prometheus.HistogramVec
	PurgedTotal     *prometheus.CounterVec
	PurgeRuns       *prometheus.CounterVec
}

// NewMetrics creates and registers the application metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keystone_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keystone_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		AuthOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keystone_auth_outcomes_total",
				Help: "Authentication operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		HashDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keystone_password_hash_duration_seconds",
				Help:    "Password hash and compare latency",
				Buckets: []float64{.01, .025, .05, .1, .2, .35, .5, 1, 2},
			},
			[]string{"operation"},
		),
		PurgedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keystone_purged_rows_total",
				Help: "Rows removed by the purge worker by kind",
			},
			[]string{"kind"},
		),
		PurgeRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keystone_purge_runs_total",
				Help: "Purge worker runs by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.AuthOutcomes,
		m.HashDuration,
		m.PurgedTotal,
		m.PurgeRuns,
	)
	return m
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveOutcome records the outcome of an auth service operation. It
// matches auth.OutcomeObserver.
func (m *Metrics) ObserveOutcome(op, outcome string) {
	m.AuthOutcomes.WithLabelValues(op, outcome).Inc()
}

// ObserveHash records a hash or compare duration. It matches
// auth.DurationObserver.
func (m *Metrics) ObserveHash(op string, d time.Duration) {
	m.HashDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObservePurge records one purge run.
func (m *Metrics) ObservePurge(kind string, n int64, err error) {
	if err != nil {
		m.PurgeRuns.WithLabelValues("error").Inc()
		return
	}
	m.PurgeRuns.WithLabelValues("success").Inc()
	m.PurgedTotal.WithLabelValues(kind).Add(float64(n))
}
