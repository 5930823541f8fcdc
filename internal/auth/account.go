// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credential policy constants.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores input past 72 bytes
	MaxUsernameLength = 64
)

// Client-facing messages for credential policy violations.
const (
	PasswordPolicyMessage = "Must Be A Strong Password, Fullfilling Each Of The Following Requirements: Min length of 8, 1 special char, 1 lowercase case, 1 uppercase, 1 number."
	UsernamePolicyMessage = "Username Must Consist Of Numbers And Letters."
)

// Account is a registered user.
type Account struct {
	ID            ulid.ULID
	Username      string
	Email         string
	PasswordHash  string
	EmailVerified bool
	FirstName     string
	LastName      string
	Age           int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins first and last name the way tokens carry it.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NewAccount creates an unverified Account with a fresh ID.
// The password must already be hashed.
func NewAccount(username, email, passwordHash, firstName, lastName string, age int) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, validationError("email", "required", "email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID").Errorf("password hash cannot be empty")
	}
	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Age:          age,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks that username is alphanumeric and contains at
// least one letter and one digit.
func ValidateUsername(username string) error {
	if username == "" {
		return validationError("username", "required", "Username Is Required.")
	}
	if len(username) > MaxUsernameLength {
		return validationError("username", "max", UsernamePolicyMessage)
	}
	var letter, digit bool
	for _, r := range username {
		switch {
		case r < utf8.RuneSelf && unicode.IsLetter(r):
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return validationError("username", "alnummix", UsernamePolicyMessage)
		}
	}
	if !letter || !digit {
		return validationError("username", "alnummix", UsernamePolicyMessage)
	}
	return nil
}

// ValidatePassword enforces the password policy: at least MinPasswordLength
// characters with an uppercase letter, a lowercase letter, a digit and a
// special character.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return validationError("password", "strongpassword", PasswordPolicyMessage)
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return validationError("password", "strongpassword", PasswordPolicyMessage)
	}
	return nil
}

func validationError(field, constraint, msg string) error {
	return oops.Code(CodeValidation).
		With("field", field).
		With("constraint", constraint).
		Errorf("%s", msg)
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. A duplicate username or email fails with
	// CodeUsernameTaken or CodeEmailTaken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByUsername retrieves an account by exact username.
	// Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// GetByEmail retrieves an account by normalized email.
	// Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// MarkEmailVerified sets the email-verified flag.
	MarkEmailVerified(ctx context.Context, id ulid.ULID) error

	// UpdatePassword replaces the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
