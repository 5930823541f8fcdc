// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package ratelimit

import (
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Default rejection messages.
const (
	MessageDefault = "Too Many Requests."
	MessageLogin   = "Too Many Login Requests."
	MessageLogout  = "Too Many Logout Requests."
)

// Policy is the fixed window applied to one route.
type Policy struct {
	Route   string        `koanf:"route" json:"route"`
	Limit   int           `koanf:"limit" json:"limit,omitempty"`
	Window  time.Duration `koanf:"window" json:"window,omitempty"`
	Message string        `koanf:"message" json:"message,omitempty"`
}

// DefaultPolicies returns the built-in per-route windows.
func DefaultPolicies() []Policy {
	return []Policy{
		{Route: "auth.registration", Limit: 25, Window: 15 * time.Minute, Message: MessageDefault},
		{Route: "auth.verify-email", Limit: 10, Window: 15 * time.Minute, Message: MessageDefault},
		{Route: "auth.generate-verification-code", Limit: 25, Window: 15 * time.Minute, Message: MessageDefault},
		{Route: "auth.login", Limit: 10, Window: 15 * time.Minute, Message: MessageLogin},
		{Route: "auth.change-password", Limit: 5, Window: 15 * time.Minute, Message: MessageDefault},
		{Route: "auth.verify-code", Limit: 10, Window: 15 * time.Minute, Message: MessageDefault},
		{Route: "auth.reset-password", Limit: 25, Window: 15 * time.Minute, Message: MessageDefault},
		{Route: "auth.logout", Limit: 10, Window: time.Minute, Message: MessageLogout},
		{Route: "auth.restricted", Limit: 75, Window: time.Minute, Message: MessageDefault},
	}
}

// override is a configured policy whose Route is a glob over route names.
// Zero fields leave the matched policy's value in place.
type override struct {
	pattern glob.Glob
	Policy
}

func compileOverrides(policies []Policy) ([]override, error) {
	out := make([]override, 0, len(policies))
	for _, p := range policies {
		if p.Limit < 0 || p.Window < 0 {
			return nil, oops.Code("RATELIMIT_POLICY_INVALID").
				With("route", p.Route).
				Errorf("limit and window must not be negative")
		}
		g, err := glob.Compile(p.Route, '.')
		if err != nil {
			return nil, oops.Code("RATELIMIT_PATTERN_INVALID").With("route", p.Route).Wrap(err)
		}
		out = append(out, override{pattern: g, Policy: p})
	}
	return out, nil
}

// resolve applies every matching override, in order, to base.
func resolve(route string, base Policy, overrides []override) (Policy, bool) {
	found := base.Limit > 0 && base.Window > 0
	p := base
	p.Route = route
	for _, o := range overrides {
		if !o.pattern.Match(route) {
			continue
		}
		if o.Limit > 0 {
			p.Limit = o.Limit
		}
		if o.Window > 0 {
			p.Window = o.Window
		}
		if o.Message != "" {
			p.Message = o.Message
		}
		found = p.Limit > 0 && p.Window > 0
	}
	if p.Message == "" {
		p.Message = MessageDefault
	}
	return p, found
}
