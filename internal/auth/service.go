// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/keystone-crm/keystone/pkg/errutil"
)

// OutcomeObserver receives the result of each service operation.
// outcome is "success" or the error code of the rejection.
type OutcomeObserver func(op, outcome string)

// Config holds the collaborators of a Service.
type Config struct {
	Accounts AccountRepository
	Codes    VerificationCodeRepository
	Revoked  RevokedTokenRepository
	Hashes   *HashPool
	Tokens   *TokenIssuer
	Mailer   Mailer

	// Generator defaults to NewCodeGenerator().
	Generator *CodeGenerator
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Observe is optional.
	Observe OutcomeObserver
	// Now defaults to time.Now.
	Now func() time.Time
}

// RegistrationInput carries the fields of a new account.
type RegistrationInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Age       int
}

// Service implements registration, login, email verification, password
// reset and logout.
type Service struct {
	accounts  AccountRepository
	codes     VerificationCodeRepository
	guard     *RevocationGuard
	hashes    *HashPool
	tokens    *TokenIssuer
	mailer    Mailer
	generator *CodeGenerator
	logger    *slog.Logger
	observe   OutcomeObserver
	now       func() time.Time

	// decoyHash is compared against when a login names an unknown account
	// so that both paths pay for one hash comparison at the same cost.
	decoyHash string
}

// NewService validates cfg and creates a Service.
func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.Accounts == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("account repository is required")
	case cfg.Codes == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("verification code repository is required")
	case cfg.Revoked == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("revoked token repository is required")
	case cfg.Hashes == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("hash pool is required")
	case cfg.Tokens == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token issuer is required")
	case cfg.Mailer == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("mailer is required")
	}

	s := &Service{
		accounts:  cfg.Accounts,
		codes:     cfg.Codes,
		guard:     NewRevocationGuard(cfg.Revoked),
		hashes:    cfg.Hashes,
		tokens:    cfg.Tokens,
		mailer:    cfg.Mailer,
		generator: cfg.Generator,
		logger:    cfg.Logger,
		observe:   cfg.Observe,
		now:       cfg.Now,
	}
	if s.generator == nil {
		s.generator = NewCodeGenerator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.guard.now = s.now

	decoy, err := newDecoyHash(s.hashes.Hasher())
	if err != nil {
		return nil, err
	}
	s.decoyHash = decoy
	return s, nil
}

func newDecoyHash(h PasswordHasher) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("AUTH_SERVICE_INVALID").Wrap(err)
	}
	hash, err := h.Hash(base64.RawStdEncoding.EncodeToString(buf))
	if err != nil {
		return "", oops.Code("AUTH_SERVICE_INVALID").With("operation", "decoy hash").Wrap(err)
	}
	return hash, nil
}

// Guard returns the revocation guard used by the service.
func (s *Service) Guard() *RevocationGuard {
	return s.guard
}

// Register creates an unverified account and emails an EMAIL_VERIFY code.
// A failure to store or deliver the code is logged but does not fail the
// registration; the code can be requested again.
func (s *Service) Register(ctx context.Context, in RegistrationInput) (acct *Account, err error) {
	defer func() { s.record(ctx, "register", err) }()

	if err := ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	email := NormalizeEmail(in.Email)

	hash, err := s.hashes.Hash(ctx, in.Password)
	if err != nil {
		return nil, oops.Code(CodeHashFailed).With("operation", "hash password").Wrap(err)
	}

	if err := s.checkAvailable(ctx, in.Username, email); err != nil {
		return nil, err
	}

	acct, err = NewAccount(in.Username, email, hash, in.FirstName, in.LastName, in.Age)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		switch errutil.Code(err) {
		case CodeUsernameTaken, CodeEmailTaken, CodeUsernameEmailTaken:
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "create account").Wrap(err)
	}

	if err := s.issueAndSend(ctx, acct, PurposeEmailVerify); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "verification code not delivered after registration", err)
	}
	return acct, nil
}

func (s *Service) checkAvailable(ctx context.Context, username, email string) error {
	_, userErr := s.accounts.GetByUsername(ctx, username)
	if userErr != nil && !errors.Is(userErr, ErrNotFound) {
		return oops.Code("AUTH_REGISTER_FAILED").With("operation", "get account by username").Wrap(userErr)
	}
	_, emailErr := s.accounts.GetByEmail(ctx, email)
	if emailErr != nil && !errors.Is(emailErr, ErrNotFound) {
		return oops.Code("AUTH_REGISTER_FAILED").With("operation", "get account by email").Wrap(emailErr)
	}

	usernameTaken := userErr == nil
	emailTaken := emailErr == nil
	switch {
	case usernameTaken && emailTaken:
		return oops.Code(CodeUsernameEmailTaken).Errorf("Username and Email Already Associated With A Different Account.")
	case emailTaken:
		return ErrEmailTaken()
	case usernameTaken:
		return ErrUsernameTaken()
	}
	return nil
}

// ErrUsernameTaken is the conflict returned for a duplicate username.
func ErrUsernameTaken() error {
	return oops.Code(CodeUsernameTaken).Errorf("Username Already Associated With Another Account.")
}

// ErrEmailTaken is the conflict returned for a duplicate email.
func ErrEmailTaken() error {
	return oops.Code(CodeEmailTaken).Errorf("Email Already Associated With Another Account.")
}

// VerifyEmail consumes an EMAIL_VERIFY code and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (err error) {
	defer func() { s.record(ctx, "verify_email", err) }()

	acct, err := s.accountForVerification(ctx, email)
	if err != nil {
		return err
	}
	if acct.EmailVerified {
		return oops.Code(CodeAlreadyVerified).Errorf("Account Already Verified. Proceed To Sign In.")
	}
	if err := s.consumeCode(ctx, acct.Email, PurposeEmailVerify, code); err != nil {
		return err
	}
	if err := s.accounts.MarkEmailVerified(ctx, acct.ID); err != nil {
		return oops.Code("AUTH_VERIFY_EMAIL_FAILED").With("account_id", acct.ID.String()).Wrap(err)
	}
	return nil
}

// ResendVerificationCode issues a fresh EMAIL_VERIFY code, superseding the
// previous one.
func (s *Service) ResendVerificationCode(ctx context.Context, email string) (err error) {
	defer func() { s.record(ctx, "resend_verification_code", err) }()

	acct, err := s.existingAccount(ctx, email)
	if err != nil {
		return err
	}
	return s.issueAndSend(ctx, acct, PurposeEmailVerify)
}

// Login checks credentials and returns a LOGIN token. Accounts whose email
// is not verified yet are refused.
//
// An unknown username still pays for one hash comparison against a decoy hash
// so response time does not reveal whether the account exists.
func (s *Service) Login(ctx context.Context, username, password string) (token string, err error) {
	defer func() { s.record(ctx, "login", err) }()

	acct, lookupErr := s.accounts.GetByUsername(ctx, username)
	found := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "get account by username").Wrap(lookupErr)
	}

	target := s.decoyHash
	if found {
		target = acct.PasswordHash
	}

	match, cmpErr := s.hashes.Compare(ctx, password, target)
	if cmpErr != nil {
		if ctx.Err() != nil {
			return "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "compare password").Wrap(cmpErr)
		}
		errutil.LogErrorContext(ctx, s.logger, "stored password hash unreadable", cmpErr)
		match = false
	}
	if !found || !match {
		return "", errInvalidCredentials()
	}
	// Checked after the password so the answer never confirms an account
	// to someone without its credentials.
	if !acct.EmailVerified {
		return "", oops.Code(CodeEmailNotVerified).
			With("account_id", acct.ID.String()).
			Errorf("Email Not Verified. Check Your Inbox For A Verification Code.")
	}

	if s.hashes.NeedsUpgrade(acct.PasswordHash) {
		s.upgradeHash(ctx, acct, password)
	}

	token, err = s.tokens.Issue(acct, 0, RoleLogin)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) upgradeHash(ctx context.Context, acct *Account, password string) {
	hash, err := s.hashes.Hash(ctx, password)
	if err == nil {
		err = s.accounts.UpdatePassword(ctx, acct.ID, hash)
	}
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password hash upgrade failed", err)
		return
	}
	acct.PasswordHash = hash
	s.logger.InfoContext(ctx, "password hash upgraded", "account_id", acct.ID.String())
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("Username Or Password Is Incorrect.")
}

// RequestPasswordReset issues a PASSWORD_RESET code, superseding any prior
// one, and emails it.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.record(ctx, "request_password_reset", err) }()

	acct, err := s.existingAccount(ctx, email)
	if err != nil {
		return err
	}
	return s.issueAndSend(ctx, acct, PurposePasswordReset)
}

// VerifyResetCode consumes a PASSWORD_RESET code and returns a short-lived
// RESET_PASSWORD token.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) (token string, err error) {
	defer func() { s.record(ctx, "verify_reset_code", err) }()

	acct, err := s.accountForVerification(ctx, email)
	if err != nil {
		return "", err
	}
	if err := s.consumeCode(ctx, acct.Email, PurposePasswordReset, code); err != nil {
		return "", err
	}
	return s.tokens.Issue(acct, 0, RoleResetPassword)
}

// ResetPassword replaces the password of the account named by a
// RESET_PASSWORD token. The token is revoked before the new hash is stored,
// so concurrent uses of one token update the password at most once.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.record(ctx, "reset_password", err) }()

	session, err := s.Authorize(ctx, token, RoleResetPassword)
	if err != nil {
		return err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	acct, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errAccountNotFound()
		}
		return oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "get account").Wrap(err)
	}

	hash, err := s.hashes.Hash(ctx, newPassword)
	if err != nil {
		return oops.Code(CodeHashFailed).With("operation", "hash password").Wrap(err)
	}

	if err := s.guard.Revoke(ctx, token, session.ExpiresAt); err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, acct.ID, hash); err != nil {
		return oops.Code("AUTH_RESET_PASSWORD_FAILED").With("operation", "update password").Wrap(err)
	}
	return nil
}

// Logout revokes token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	defer func() { s.record(ctx, "logout", err) }()

	session, err := s.Authorize(ctx, token)
	if err != nil {
		return err
	}
	return s.guard.Revoke(ctx, token, session.ExpiresAt)
}

// Authorize checks that token is not revoked, verifies it and, when roles
// are given, that its role is one of them.
func (s *Service) Authorize(ctx context.Context, token string, roles ...Role) (*DecodedSession, error) {
	if token == "" {
		return nil, oops.Code(CodeTokenRequired).Errorf("Token Required.")
	}
	if err := s.guard.Check(ctx, token); err != nil {
		return nil, err
	}
	session, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 {
		if err := session.RequireRole(roles...); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// consumeCode applies the one-time code rules shared by email verification
// and password reset.
func (s *Service) consumeCode(ctx context.Context, email string, purpose Purpose, candidate string) error {
	latest, err := s.codes.Latest(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return errCodeUnavailable()
		}
		return oops.Code("AUTH_CODE_LOOKUP_FAILED").With("purpose", purpose).Wrap(err)
	}
	if !latest.IsValid {
		return errCodeUnavailable()
	}

	if latest.IsExpired(s.now()) {
		if _, err := s.codes.Invalidate(ctx, latest.ID); err != nil {
			return oops.Code("AUTH_CODE_INVALIDATE_FAILED").With("code_id", latest.ID.String()).Wrap(err)
		}
		return oops.Code(CodeCodeExpired).Errorf("Code Expired, Click Button To Generate A New Code.")
	}

	if !latest.Matches(candidate) {
		return oops.Code(CodeCodeMismatch).Errorf("Invalid Verification Code.")
	}

	won, err := s.codes.Invalidate(ctx, latest.ID)
	if err != nil {
		return oops.Code("AUTH_CODE_INVALIDATE_FAILED").With("code_id", latest.ID.String()).Wrap(err)
	}
	if !won {
		return errCodeUnavailable()
	}
	return nil
}

func errCodeUnavailable() error {
	return oops.Code(CodeCodeUnavailable).Errorf("Verification Code Either Does Not Exist Or Is Expired.")
}

func errAccountNotFound() error {
	return oops.Code(CodeAccountNotFound).Errorf("Account Not Found.")
}

// existingAccount loads the account for email or fails with
// CodeAccountNotFound.
func (s *Service) existingAccount(ctx context.Context, email string) (*Account, error) {
	acct, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errAccountNotFound()
		}
		return nil, oops.Code("AUTH_ACCOUNT_LOOKUP_FAILED").Wrap(err)
	}
	return acct, nil
}

// accountForVerification is existingAccount for the verify flows, which
// ask the user to start over.
func (s *Service) accountForVerification(ctx context.Context, email string) (*Account, error) {
	acct, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeVerifyAccountNotFound).Errorf("Account Not Found. Restart Process.")
		}
		return nil, oops.Code("AUTH_ACCOUNT_LOOKUP_FAILED").Wrap(err)
	}
	return acct, nil
}

// issueAndSend stores a new code before mailing it, so a delivered code is
// always the one that verifies.
func (s *Service) issueAndSend(ctx context.Context, acct *Account, purpose Purpose) error {
	code, err := s.generator.New(acct.Email, purpose)
	if err != nil {
		return err
	}
	if err := s.codes.Issue(ctx, code); err != nil {
		return oops.Code("AUTH_CODE_ISSUE_FAILED").With("purpose", purpose).Wrap(err)
	}
	err = s.mailer.SendCode(ctx, CodeMessage{
		To:        acct.Email,
		FirstName: acct.FirstName,
		Code:      code.Code,
		Purpose:   purpose,
	})
	if err != nil {
		return oops.Code("AUTH_MAIL_FAILED").With("purpose", purpose).Wrap(err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = errutil.Code(err)
		if outcome == "" {
			outcome = "error"
		}
		s.logger.DebugContext(ctx, "auth operation rejected", "operation", op, "outcome", outcome)
	}
	if s.observe != nil {
		s.observe(op, outcome)
	}
}
