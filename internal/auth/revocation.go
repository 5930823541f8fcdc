// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// RevokedToken is a ledger entry for a token that may no longer be used.
type RevokedToken struct {
	Token     string
	ExpiresAt time.Time
	RevokedAt time.Time
}

// RevokedTokenRepository is the append-only revocation ledger.
type RevokedTokenRepository interface {
	// Add records token as revoked. It reports false when the token was
	// already present.
	Add(ctx context.Context, token *RevokedToken) (bool, error)

	// Exists reports whether token has been revoked.
	Exists(ctx context.Context, token string) (bool, error)

	// DeleteExpiredBefore removes entries whose token expired before cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RevocationGuard rejects revoked tokens before they reach signature
// verification.
type RevocationGuard struct {
	repo RevokedTokenRepository
	now  func() time.Time
}

// NewRevocationGuard creates a RevocationGuard over repo.
func NewRevocationGuard(repo RevokedTokenRepository) *RevocationGuard {
	return &RevocationGuard{repo: repo, now: time.Now}
}

// IsRevoked reports whether token is in the ledger.
func (g *RevocationGuard) IsRevoked(ctx context.Context, token string) (bool, error) {
	revoked, err := g.repo.Exists(ctx, token)
	if err != nil {
		return false, oops.Code("AUTH_REVOCATION_LOOKUP_FAILED").Wrap(err)
	}
	return revoked, nil
}

// Check fails with CodeTokenRevoked when token has been revoked.
func (g *RevocationGuard) Check(ctx context.Context, token string) error {
	revoked, err := g.IsRevoked(ctx, token)
	if err != nil {
		return err
	}
	if revoked {
		return errTokenRevoked()
	}
	return nil
}

// Revoke appends token to the ledger. A token that is already revoked fails
// with CodeTokenRevoked.
func (g *RevocationGuard) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	added, err := g.repo.Add(ctx, &RevokedToken{
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: g.now().UTC(),
	})
	if err != nil {
		return oops.Code("AUTH_REVOKE_FAILED").Wrap(err)
	}
	if !added {
		return errTokenRevoked()
	}
	return nil
}

func errTokenRevoked() error {
	return oops.Code(CodeTokenRevoked).Errorf("Invalid Token.")
}
