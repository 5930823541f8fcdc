// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

// Package ratelimit implements per-route fixed-window request limits keyed
// by client identity.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCleanupInterval is how often ended windows are evicted.
const DefaultCleanupInterval = time.Minute

// Config configures the Limiter.
type Config struct {
	// Policies replaces DefaultPolicies when non-empty.
	Policies []Policy

	// Overrides adjust policies whose route matches the glob in Route
	// ('.' separates segments, so "auth.*" matches every auth route).
	Overrides []Policy

	CleanupInterval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is the time left in the window; zero when allowed.
	RetryAfter time.Duration
	Message    string
}

type windowKey struct {
	route, client string
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per (route, client) in fixed windows. It is safe
// for concurrent use.
//
// The Limiter runs a background goroutine that evicts ended windows. Call
// Close() to stop it.
type Limiter struct {
	mu        sync.Mutex
	windows   map[windowKey]*window
	policies  map[string]Policy
	base      map[string]Policy
	overrides []override
	now       func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	keysGauge prometheus.Gauge
	rejected  *prometheus.CounterVec
}

// New creates a Limiter and starts its sweeper.
func New(cfg Config) (*Limiter, error) {
	return newLimiter(cfg, nil)
}

// NewWithRegistry creates a Limiter and registers its tracked-key gauge and
// rejection counter with reg.
func NewWithRegistry(cfg Config, reg prometheus.Registerer) (*Limiter, error) {
	return newLimiter(cfg, reg)
}

func newLimiter(cfg Config, reg prometheus.Registerer) (*Limiter, error) {
	overrides, err := compileOverrides(cfg.Overrides)
	if err != nil {
		return nil, err
	}

	policies := cfg.Policies
	if len(policies) == 0 {
		policies = DefaultPolicies()
	}
	base := make(map[string]Policy, len(policies))
	for _, p := range policies {
		base[p.Route] = p
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	l := &Limiter{
		windows:   make(map[windowKey]*window),
		policies:  make(map[string]Policy),
		base:      base,
		overrides: overrides,
		now:       now,
		stopChan:  make(chan struct{}),
	}

	if reg != nil {
		l.keysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keystone_ratelimit_keys",
			Help: "Current number of tracked rate limit windows",
		})
		l.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keystone_ratelimit_rejected_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"})
		reg.MustRegister(l.keysGauge, l.rejected)
	}

	l.wg.Add(1)
	go l.cleanupLoop(interval)

	return l, nil
}

// Policy returns the effective policy for route and whether the route is
// limited at all.
func (l *Limiter) Policy(route string) (Policy, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.policyLocked(route)
}

func (l *Limiter) policyLocked(route string) (Policy, bool) {
	if p, ok := l.policies[route]; ok {
		return p, p.Limit > 0
	}
	p, ok := resolve(route, l.base[route], l.overrides)
	if !ok {
		p.Limit = 0
	}
	l.policies[route] = p
	return p, ok
}

// Allow counts one request from client against route. Routes without a
// policy are always allowed.
func (l *Limiter) Allow(route, client string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.policyLocked(route)
	if !ok {
		return Decision{Allowed: true}
	}

	now := l.now()
	key := windowKey{route: route, client: client}
	w, exists := l.windows[key]
	if !exists || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(p.Window)}
		l.windows[key] = w
	}
	w.count++

	d := Decision{
		Limit:   p.Limit,
		ResetAt: w.resetAt,
		Message: p.Message,
	}
	if w.count <= p.Limit {
		d.Allowed = true
		d.Remaining = p.Limit - w.count
		return d
	}
	d.RetryAfter = w.resetAt.Sub(now)
	if l.rejected != nil {
		l.rejected.WithLabelValues(route).Inc()
	}
	return d
}

// KeyCount returns the number of tracked windows.
func (l *Limiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Sweep evicts windows that have ended. The background goroutine calls it
// every cleanup interval.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
	if l.keysGauge != nil {
		l.keysGauge.Set(float64(len(l.windows)))
	}
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Close stops the sweeper and waits for it to exit. It is safe to call more
// than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
}
