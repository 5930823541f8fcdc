// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

// Package memory provides in-process implementations of the auth
// repositories for development and tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/keystone-crm/keystone/internal/auth"
)

// Store bundles the in-memory repositories.
type Store struct {
	Accounts *AccountRepository
	Codes    *CodeRepository
	Revoked  *RevokedTokenRepository
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		Accounts: NewAccountRepository(),
		Codes:    NewCodeRepository(),
		Revoked:  NewRevokedTokenRepository(),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// AccountRepository is an in-memory auth.AccountRepository.
type AccountRepository struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.Account
	byUsername map[string]ulid.ULID
	byEmail    map[string]ulid.ULID
}

// NewAccountRepository creates an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:       make(map[ulid.ULID]*auth.Account),
		byUsername: make(map[string]ulid.ULID),
		byEmail:    make(map[string]ulid.ULID),
	}
}

// Create stores a copy of account.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[account.Username]; ok {
		return auth.ErrUsernameTaken()
	}
	email := auth.NormalizeEmail(account.Email)
	if _, ok := r.byEmail[email]; ok {
		return auth.ErrEmailTaken()
	}

	stored := *account
	stored.Email = email
	r.byID[stored.ID] = &stored
	r.byUsername[stored.Username] = stored.ID
	r.byEmail[email] = stored.ID
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id, "id", id.String())
}

// GetByUsername retrieves an account by username.
func (r *AccountRepository) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byUsername[username], "username", username)
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byEmail[auth.NormalizeEmail(email)], "email", email)
}

func (r *AccountRepository) get(id ulid.ULID, key, value string) (*auth.Account, error) {
	acct, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
	}
	out := *acct
	return &out, nil
}

// MarkEmailVerified sets the verified flag.
func (r *AccountRepository) MarkEmailVerified(_ context.Context, id ulid.ULID) error {
	return r.update(id, func(a *auth.Account) { a.EmailVerified = true })
}

// UpdatePassword replaces the password hash.
func (r *AccountRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(id, func(a *auth.Account) { a.PasswordHash = passwordHash })
}

func (r *AccountRepository) update(id ulid.ULID, fn func(*auth.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	fn(acct)
	acct.UpdatedAt = time.Now().UTC()
	return nil
}

// CodeRepository is an in-memory auth.VerificationCodeRepository.
// One mutex covers supersession and insertion, so at most one code per
// email and purpose is ever valid.
type CodeRepository struct {
	mu    sync.Mutex
	codes map[string][]*auth.VerificationCode
}

// NewCodeRepository creates an empty CodeRepository.
func NewCodeRepository() *CodeRepository {
	return &CodeRepository{codes: make(map[string][]*auth.VerificationCode)}
}

func codeKey(email string, purpose auth.Purpose) string {
	return auth.NormalizeEmail(email) + "|" + string(purpose)
}

// Issue invalidates the valid code for the same email and purpose and
// stores code.
func (r *CodeRepository) Issue(ctx context.Context, code *auth.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return oops.Code("CODE_ISSUE_FAILED").Wrap(err)
	}

	key := codeKey(code.Email, code.Purpose)
	for _, existing := range r.codes[key] {
		existing.IsValid = false
	}
	stored := *code
	stored.Email = auth.NormalizeEmail(code.Email)
	stored.IsValid = true
	r.codes[key] = append(r.codes[key], &stored)
	return nil
}

// Latest returns the most recently issued code.
func (r *CodeRepository) Latest(_ context.Context, email string, purpose auth.Purpose) (*auth.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.codes[codeKey(email, purpose)]
	if len(list) == 0 {
		return nil, oops.Code("CODE_NOT_FOUND").
			With("email", email).
			With("purpose", purpose).
			Wrap(auth.ErrNotFound)
	}
	out := *list[len(list)-1]
	return &out, nil
}

// Invalidate flips the code to invalid, reporting whether this call did so.
func (r *CodeRepository) Invalidate(_ context.Context, id ulid.ULID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, list := range r.codes {
		for _, c := range list {
			if c.ID == id {
				if !c.IsValid {
					return false, nil
				}
				c.IsValid = false
				return true, nil
			}
		}
	}
	return false, nil
}

// DeleteExpiredBefore removes codes that expired before cutoff.
func (r *CodeRepository) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for key, list := range r.codes {
		kept := list[:0]
		for _, c := range list {
			if c.ExpiresAt.Before(cutoff) {
				n++
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(r.codes, key)
			continue
		}
		r.codes[key] = kept
	}
	return n, nil
}

// ValidCount returns how many valid codes exist for email and purpose.
func (r *CodeRepository) ValidCount(email string, purpose auth.Purpose) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.codes[codeKey(email, purpose)] {
		if c.IsValid {
			n++
		}
	}
	return n
}

// RevokedTokenRepository is an in-memory auth.RevokedTokenRepository.
type RevokedTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]auth.RevokedToken
}

// NewRevokedTokenRepository creates an empty ledger.
func NewRevokedTokenRepository() *RevokedTokenRepository {
	return &RevokedTokenRepository{tokens: make(map[string]auth.RevokedToken)}
}

// Add records token unless it is already present.
func (r *RevokedTokenRepository) Add(_ context.Context, token *auth.RevokedToken) (bool, error) {
	if strings.TrimSpace(token.Token) == "" {
		return false, oops.Code("REVOKED_TOKEN_INVALID").Errorf("token cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token.Token]; ok {
		return false, nil
	}
	r.tokens[token.Token] = *token
	return true, nil
}

// Exists reports whether token is in the ledger.
func (r *RevokedTokenRepository) Exists(_ context.Context, token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[token]
	return ok, nil
}

// DeleteExpiredBefore removes entries whose token expired before cutoff.
func (r *RevokedTokenRepository) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, v := range r.tokens {
		if v.ExpiresAt.Before(cutoff) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

// Compile-time interface checks.
var (
	_ auth.AccountRepository          = (*AccountRepository)(nil)
	_ auth.VerificationCodeRepository = (*CodeRepository)(nil)
	_ auth.RevokedTokenRepository     = (*RevokedTokenRepository)(nil)
)
