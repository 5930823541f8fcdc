// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

// Package cleanup removes expired verification codes and revoked tokens.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/pkg/errutil"
)

// Defaults.
const (
	DefaultInterval      = time.Hour
	DefaultCodeRetention = 24 * time.Hour
)

// Purge kinds reported to the observer.
const (
	KindCodes  = "verification_codes"
	KindTokens = "revoked_tokens"
)

// Observer receives the result of each purge of one kind.
type Observer func(kind string, n int64, err error)

// Config configures a Purger.
type Config struct {
	Codes   auth.VerificationCodeRepository
	Revoked auth.RevokedTokenRepository

	Interval time.Duration
	// CodeRetention keeps expired codes this long for audit before they
	// are deleted.
	CodeRetention time.Duration

	Logger  *slog.Logger
	Observe Observer
	Now     func() time.Time
}

// Result counts the rows removed by one purge.
type Result struct {
	Codes  int64
	Tokens int64
}

// Purger deletes expired rows on a fixed interval.
type Purger struct {
	codes     auth.VerificationCodeRepository
	revoked   auth.RevokedTokenRepository
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	observe   Observer
	now       func() time.Time
}

// New creates a Purger.
func New(cfg Config) (*Purger, error) {
	if cfg.Codes == nil || cfg.Revoked == nil {
		return nil, oops.Code("PURGE_CONFIG_INVALID").Errorf("code and revoked token repositories are required")
	}
	p := &Purger{
		codes:     cfg.Codes,
		revoked:   cfg.Revoked,
		interval:  cfg.Interval,
		retention: cfg.CodeRetention,
		logger:    cfg.Logger,
		observe:   cfg.Observe,
		now:       cfg.Now,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.retention < 0 {
		p.retention = 0
	} else if p.retention == 0 {
		p.retention = DefaultCodeRetention
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// PurgeOnce deletes revoked tokens past their expiry and codes that expired
// more than the retention window ago. Both kinds are attempted even when
// one fails.
func (p *Purger) PurgeOnce(ctx context.Context) (Result, error) {
	now := p.now().UTC()
	var res Result

	tokens, tokErr := p.revoked.DeleteExpiredBefore(ctx, now)
	p.record(KindTokens, tokens, tokErr)
	if tokErr == nil {
		res.Tokens = tokens
	}

	codes, codeErr := p.codes.DeleteExpiredBefore(ctx, now.Add(-p.retention))
	p.record(KindCodes, codes, codeErr)
	if codeErr == nil {
		res.Codes = codes
	}

	if err := errors.Join(tokErr, codeErr); err != nil {
		return res, oops.Code("PURGE_FAILED").Wrap(err)
	}
	return res, nil
}

func (p *Purger) record(kind string, n int64, err error) {
	if p.observe != nil {
		p.observe(kind, n, err)
	}
}

// Run purges once immediately and then every interval until ctx is done.
func (p *Purger) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.InfoContext(ctx, "purge worker started", "interval", p.interval, "code_retention", p.retention)
	for {
		p.runOnce(ctx)
		select {
		case <-ctx.Done():
			p.logger.InfoContext(context.WithoutCancel(ctx), "purge worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Purger) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := p.PurgeOnce(ctx)
	if err != nil {
		errutil.LogErrorContext(ctx, p.logger, "purge failed", err)
		return
	}
	if res.Codes > 0 || res.Tokens > 0 {
		p.logger.InfoContext(ctx, "purged expired rows", "codes", res.Codes, "tokens", res.Tokens)
	}
}
