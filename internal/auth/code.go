// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"io"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Verification code parameters.
const (
	CodeAlphabet = "ABCDEFGHJKMNOPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz123456789"
	CodeLength   = 6
	CodeTTL      = 5 * time.Minute
)

// Purpose distinguishes what a verification code unlocks.
type Purpose string

// Code purposes.
const (
	PurposeEmailVerify   Purpose = "EMAIL_VERIFY"
	PurposePasswordReset Purpose = "PASSWORD_RESET"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeEmailVerify || p == PurposePasswordReset
}

// VerificationCode is a short-lived one-time code sent by email.
type VerificationCode struct {
	ID        ulid.ULID
	Email     string
	Code      string
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
	IsValid   bool
}

// IsExpired reports whether the code has passed its expiry at now.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Matches compares candidate to the stored code in constant time.
func (c *VerificationCode) Matches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Code), []byte(candidate)) == 1
}

// CodeGenerator produces verification codes.
type CodeGenerator struct {
	now    func() time.Time
	random io.Reader
}

// CodeGeneratorOption configures a CodeGenerator.
type CodeGeneratorOption func(*CodeGenerator)

// WithCodeClock sets the clock used for issue and expiry times.
func WithCodeClock(now func() time.Time) CodeGeneratorOption {
	return func(g *CodeGenerator) { g.now = now }
}

// WithCodeRandom sets the randomness source. Defaults to crypto/rand.
func WithCodeRandom(r io.Reader) CodeGeneratorOption {
	return func(g *CodeGenerator) { g.random = r }
}

// NewCodeGenerator creates a CodeGenerator.
func NewCodeGenerator(opts ...CodeGeneratorOption) *CodeGenerator {
	g := &CodeGenerator{now: time.Now, random: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns CodeLength characters drawn uniformly from CodeAlphabet.
func (g *CodeGenerator) Generate() (string, error) {
	size := big.NewInt(int64(len(CodeAlphabet)))
	out := make([]byte, CodeLength)
	for i := range out {
		n, err := rand.Int(g.random, size)
		if err != nil {
			return "", oops.Code("AUTH_CODE_GENERATION_FAILED").Wrap(err)
		}
		out[i] = CodeAlphabet[n.Int64()]
	}
	return string(out), nil
}

// ExpirationDate returns the expiry for a code issued now.
func (g *CodeGenerator) ExpirationDate() time.Time {
	return g.now().UTC().Add(CodeTTL)
}

// New creates a valid code for email and purpose.
func (g *CodeGenerator) New(email string, purpose Purpose) (*VerificationCode, error) {
	if !purpose.Valid() {
		return nil, oops.Code("AUTH_INVALID_PURPOSE").With("purpose", purpose).Errorf("unknown code purpose")
	}
	code, err := g.Generate()
	if err != nil {
		return nil, err
	}
	issued := g.now().UTC()
	return &VerificationCode{
		ID:        ulid.Make(),
		Email:     NormalizeEmail(email),
		Code:      code,
		Purpose:   purpose,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(CodeTTL),
		IsValid:   true,
	}, nil
}

// VerificationCodeRepository manages verification code persistence.
type VerificationCodeRepository interface {
	// Issue stores code and invalidates every other valid code for the same
	// email and purpose as one atomic step. On failure the previous code
	// stays valid.
	Issue(ctx context.Context, code *VerificationCode) error

	// Latest returns the most recently issued code for email and purpose.
	// Returns ErrNotFound if none exists.
	Latest(ctx context.Context, email string, purpose Purpose) (*VerificationCode, error)

	// Invalidate flips a valid code to invalid. It reports false when the
	// code was already invalid, so exactly one caller wins a race.
	Invalidate(ctx context.Context, id ulid.ULID) (bool, error)

	// DeleteExpiredBefore removes codes that expired before cutoff and
	// returns how many were removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
