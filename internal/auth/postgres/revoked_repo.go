// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/keystone-crm/keystone/internal/auth"
)

// RevokedTokenRepository implements auth.RevokedTokenRepository using
// PostgreSQL.
type RevokedTokenRepository struct {
	pool Pool
}

// NewRevokedTokenRepository creates a new RevokedTokenRepository.
func NewRevokedTokenRepository(pool Pool) *RevokedTokenRepository {
	return &RevokedTokenRepository{pool: pool}
}

// Add records token. The primary key makes a second Add of the same token
// report false.
func (r *RevokedTokenRepository) Add(ctx context.Context, token *auth.RevokedToken) (bool, error) {
	if strings.TrimSpace(token.Token) == "" {
		return false, oops.Code("REVOKED_TOKEN_INVALID").Errorf("token cannot be empty")
	}
	result, err := r.pool.Exec(ctx, `
		INSERT INTO revoked_tokens (token, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO NOTHING
	`, token.Token, token.ExpiresAt, token.RevokedAt)
	if err != nil {
		return false, oops.Code("REVOKED_TOKEN_ADD_FAILED").With("operation", "insert revoked token").Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// Exists reports whether token has been revoked.
func (r *RevokedTokenRepository) Exists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, oops.Code("REVOKED_TOKEN_LOOKUP_FAILED").With("operation", "check revoked token").Wrap(err)
	}
	return exists, nil
}

// DeleteExpiredBefore removes entries whose token expired before cutoff.
func (r *RevokedTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, oops.Code("REVOKED_TOKEN_PURGE_FAILED").With("cutoff", cutoff).Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.RevokedTokenRepository = (*RevokedTokenRepository)(nil)
