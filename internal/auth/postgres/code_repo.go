// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/keystone-crm/keystone/internal/auth"
)

// Issue retry policy for transient conflicts.
const (
	issueRetries = 3
	issueBackoff = 10 * time.Millisecond
)

// CodeRepository implements auth.VerificationCodeRepository using PostgreSQL.
type CodeRepository struct {
	pool    Pool
	retries uint64
	backoff time.Duration
}

// NewCodeRepository creates a new CodeRepository.
func NewCodeRepository(pool Pool) *CodeRepository {
	return &CodeRepository{pool: pool, retries: issueRetries, backoff: issueBackoff}
}

// Issue supersedes the valid code for the same email and purpose and
// inserts code in one transaction. A per-(email, purpose) advisory lock
// serializes concurrent issues; unique and serialization conflicts that
// still slip through are retried.
func (r *CodeRepository) Issue(ctx context.Context, code *auth.VerificationCode) error {
	email := auth.NormalizeEmail(code.Email)
	b := retry.WithMaxRetries(r.retries, retry.NewExponential(r.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx,
				`SELECT pg_advisory_xact_lock(hashtext($1 || '|' || $2))`,
				email, string(code.Purpose)); err != nil {
				return err //nolint:wrapcheck // wrapped below
			}
			if _, err := tx.Exec(ctx, `
				UPDATE verification_codes SET is_valid = FALSE
				WHERE email = $1 AND purpose = $2 AND is_valid
			`, email, string(code.Purpose)); err != nil {
				return err //nolint:wrapcheck // wrapped below
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO verification_codes (id, email, code, purpose, issued_at, expires_at, is_valid)
				VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			`, code.ID.String(), email, code.Code, string(code.Purpose), code.IssuedAt, code.ExpiresAt)
			return err //nolint:wrapcheck // wrapped below
		})
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return oops.Code("CODE_ISSUE_FAILED").
			With("operation", "issue code").
			With("email", email).
			With("purpose", code.Purpose).
			Wrap(err)
	}
	return nil
}

// Latest returns the most recently issued code for email and purpose.
func (r *CodeRepository) Latest(ctx context.Context, email string, purpose auth.Purpose) (*auth.VerificationCode, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, code, purpose, issued_at, expires_at, is_valid
		FROM verification_codes
		WHERE email = $1 AND purpose = $2
		ORDER BY issued_at DESC, id DESC
		LIMIT 1
	`, auth.NormalizeEmail(email), string(purpose))

	var (
		idStr      string
		purposeStr string
		code       auth.VerificationCode
	)
	err := row.Scan(&idStr, &code.Email, &code.Code, &purposeStr, &code.IssuedAt, &code.ExpiresAt, &code.IsValid)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CODE_NOT_FOUND").
			With("email", email).
			With("purpose", purpose).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CODE_GET_FAILED").
			With("operation", "get latest code").
			With("email", email).
			Wrap(err)
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("CODE_INVALID_ID").With("id", idStr).Wrap(err)
	}
	code.ID = id
	code.Purpose = auth.Purpose(purposeStr)
	return &code, nil
}

// Invalidate flips a valid code to invalid. Only the caller whose UPDATE
// matched the row gets true.
func (r *CodeRepository) Invalidate(ctx context.Context, id ulid.ULID) (bool, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE verification_codes SET is_valid = FALSE WHERE id = $1 AND is_valid`, id.String())
	if err != nil {
		return false, oops.Code("CODE_INVALIDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	return result.RowsAffected() == 1, nil
}

// DeleteExpiredBefore removes codes that expired before cutoff.
func (r *CodeRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, oops.Code("CODE_PURGE_FAILED").With("cutoff", cutoff).Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.VerificationCodeRepository = (*CodeRepository)(nil)
