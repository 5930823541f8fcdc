// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/auth/postgres"
	"github.com/keystone-crm/keystone/pkg/errutil"
)

var accountCols = []string{
	"id", "username", "email", "password_hash", "email_verified",
	"first_name", "last_name", "age", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func sampleAccount() *auth.Account {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.Account{
		ID:           ulid.Make(),
		Username:     "ada1815",
		Email:        "Ada@Example.com",
		PasswordHash: "$2a$12$hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Age:          36,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestAccountRepository_Create(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "success"},
		{
			name:     "duplicate username",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_username_key"},
			wantCode: auth.CodeUsernameTaken,
		},
		{
			name:     "duplicate email",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_email_key"},
			wantCode: auth.CodeEmailTaken,
		},
		{
			name:     "other unique violation",
			err:      &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "accounts_pkey"},
			wantCode: "ACCOUNT_CREATE_FAILED",
		},
		{
			name:     "connection failure",
			err:      errors.New("connection refused"),
			wantCode: "ACCOUNT_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			acct := sampleAccount()
			exp := mock.ExpectExec(`INSERT INTO accounts`).
				WithArgs(acct.ID.String(), acct.Username, "ada@example.com", acct.PasswordHash,
					false, "Ada", "Lovelace", 36, acct.CreatedAt, acct.UpdatedAt)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := postgres.NewAccountRepository(mock).Create(context.Background(), acct)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		acct := sampleAccount()
		mock.ExpectQuery(`FROM accounts WHERE email = \$1`).
			WithArgs("ada@example.com").
			WillReturnRows(pgxmock.NewRows(accountCols).AddRow(
				acct.ID.String(), acct.Username, "ada@example.com", acct.PasswordHash, true,
				acct.FirstName, acct.LastName, acct.Age, acct.CreatedAt, acct.UpdatedAt))

		got, err := postgres.NewAccountRepository(mock).GetByEmail(context.Background(), " ADA@example.com ")
		require.NoError(t, err)
		assert.Equal(t, acct.ID, got.ID)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.True(t, got.EmailVerified)
		assert.Equal(t, "Ada Lovelace", got.FullName())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM accounts WHERE email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnRows(pgxmock.NewRows(accountCols))

		_, err := postgres.NewAccountRepository(mock).GetByEmail(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
	})

	t.Run("corrupt id", func(t *testing.T) {
		mock := newMock(t)
		acct := sampleAccount()
		mock.ExpectQuery(`FROM accounts WHERE email = \$1`).
			WillReturnRows(pgxmock.NewRows(accountCols).AddRow(
				"not-a-ulid", acct.Username, "ada@example.com", acct.PasswordHash, false,
				acct.FirstName, acct.LastName, acct.Age, acct.CreatedAt, acct.UpdatedAt))

		_, err := postgres.NewAccountRepository(mock).GetByEmail(context.Background(), "ada@example.com")
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_ID")
	})
}

func TestAccountRepository_GetByUsername_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM accounts WHERE username = \$1`).
		WithArgs("ada1815").
		WillReturnError(errors.New("connection reset"))

	_, err := postgres.NewAccountRepository(mock).GetByUsername(context.Background(), "ada1815")
	errutil.AssertErrorCode(t, err, "ACCOUNT_GET_FAILED")
	assert.NotErrorIs(t, err, auth.ErrNotFound)
}

func TestAccountRepository_UpdatePassword(t *testing.T) {
	id := ulid.Make()

	t.Run("updated", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE accounts SET password_hash`).
			WithArgs(id.String(), "newhash", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, postgres.NewAccountRepository(mock).UpdatePassword(context.Background(), id, "newhash"))
	})

	t.Run("missing account", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE accounts SET password_hash`).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err := postgres.NewAccountRepository(mock).UpdatePassword(context.Background(), id, "newhash")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestAccountRepository_MarkEmailVerified(t *testing.T) {
	id := ulid.Make()
	mock := newMock(t)
	mock.ExpectExec(`UPDATE accounts SET email_verified = TRUE`).
		WithArgs(id.String(), pgxmock.AnyArg()).
		WillReturnError(errors.New("timeout"))

	err := postgres.NewAccountRepository(mock).MarkEmailVerified(context.Background(), id)
	errutil.AssertErrorCode(t, err, "ACCOUNT_UPDATE_FAILED")
	errutil.AssertErrorContext(t, err, "operation", "mark email verified")
}

func sampleCode() *auth.VerificationCode {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &auth.VerificationCode{
		ID:        ulid.Make(),
		Email:     "Ada@Example.com",
		Code:      "K7Q2ZP",
		Purpose:   auth.PurposeEmailVerify,
		IssuedAt:  now,
		ExpiresAt: now.Add(auth.CodeTTL),
		IsValid:   true,
	}
}

func expectIssue(mock pgxmock.PgxPoolIface, code *auth.VerificationCode, insertErr error) {
	mock.ExpectBegin()
	mock.ExpectExec(`pg_advisory_xact_lock`).
		WithArgs("ada@example.com", string(code.Purpose)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`UPDATE verification_codes SET is_valid = FALSE`).
		WithArgs("ada@example.com", string(code.Purpose)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	insert := mock.ExpectExec(`INSERT INTO verification_codes`).
		WithArgs(code.ID.String(), "ada@example.com", code.Code, string(code.Purpose), code.IssuedAt, code.ExpiresAt)
	if insertErr != nil {
		insert.WillReturnError(insertErr)
		mock.ExpectRollback()
		return
	}
	insert.WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
}

func TestCodeRepository_Issue(t *testing.T) {
	conflict := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "verification_codes_one_valid_idx"}

	t.Run("supersedes and inserts in one transaction", func(t *testing.T) {
		mock := newMock(t)
		code := sampleCode()
		expectIssue(mock, code, nil)
		require.NoError(t, postgres.NewCodeRepository(mock).Issue(context.Background(), code))
	})

	t.Run("retries a unique conflict", func(t *testing.T) {
		mock := newMock(t)
		code := sampleCode()
		expectIssue(mock, code, conflict)
		expectIssue(mock, code, nil)
		require.NoError(t, postgres.NewCodeRepository(mock).Issue(context.Background(), code))
	})

	t.Run("does not retry other failures", func(t *testing.T) {
		mock := newMock(t)
		code := sampleCode()
		expectIssue(mock, code, errors.New("disk full"))

		err := postgres.NewCodeRepository(mock).Issue(context.Background(), code)
		errutil.AssertErrorCode(t, err, "CODE_ISSUE_FAILED")
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		mock := newMock(t)
		code := sampleCode()
		for range 4 {
			expectIssue(mock, code, conflict)
		}
		err := postgres.NewCodeRepository(mock).Issue(context.Background(), code)
		errutil.AssertErrorCode(t, err, "CODE_ISSUE_FAILED")
	})
}

func TestCodeRepository_Latest(t *testing.T) {
	cols := []string{"id", "email", "code", "purpose", "issued_at", "expires_at", "is_valid"}

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		code := sampleCode()
		mock.ExpectQuery(`ORDER BY issued_at DESC, id DESC`).
			WithArgs("ada@example.com", "PASSWORD_RESET").
			WillReturnRows(pgxmock.NewRows(cols).AddRow(
				code.ID.String(), "ada@example.com", code.Code, "PASSWORD_RESET",
				code.IssuedAt, code.ExpiresAt, false))

		got, err := postgres.NewCodeRepository(mock).Latest(context.Background(), "ada@example.com", auth.PurposePasswordReset)
		require.NoError(t, err)
		assert.Equal(t, code.ID, got.ID)
		assert.Equal(t, auth.PurposePasswordReset, got.Purpose)
		assert.False(t, got.IsValid)
	})

	t.Run("none issued", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM verification_codes`).WillReturnRows(pgxmock.NewRows(cols))

		_, err := postgres.NewCodeRepository(mock).Latest(context.Background(), "ada@example.com", auth.PurposeEmailVerify)
		require.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "CODE_NOT_FOUND")
	})
}

func TestCodeRepository_Invalidate(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"wins", 1, true},
		{"already invalid", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			id := ulid.Make()
			mock.ExpectExec(`UPDATE verification_codes SET is_valid = FALSE WHERE id = \$1 AND is_valid`).
				WithArgs(id.String()).
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			got, err := postgres.NewCodeRepository(mock).Invalidate(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodeRepository_DeleteExpiredBefore(t *testing.T) {
	mock := newMock(t)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM verification_codes WHERE expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := postgres.NewCodeRepository(mock).DeleteExpiredBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestRevokedTokenRepository_Add(t *testing.T) {
	expires := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"first revoke", 1, true},
		{"duplicate", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectExec(`ON CONFLICT \(token\) DO NOTHING`).
				WithArgs("tok", expires, pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))

			added, err := postgres.NewRevokedTokenRepository(mock).Add(context.Background(),
				&auth.RevokedToken{Token: "tok", ExpiresAt: expires, RevokedAt: time.Now()})
			require.NoError(t, err)
			assert.Equal(t, tt.want, added)
		})
	}

	t.Run("empty token", func(t *testing.T) {
		mock := newMock(t)
		_, err := postgres.NewRevokedTokenRepository(mock).Add(context.Background(), &auth.RevokedToken{Token: " "})
		errutil.AssertErrorCode(t, err, "REVOKED_TOKEN_INVALID")
	})
}

func TestRevokedTokenRepository_Exists(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("tok").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := postgres.NewRevokedTokenRepository(mock).Exists(context.Background(), "tok")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("lookup failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("connection refused"))

		_, err := postgres.NewRevokedTokenRepository(mock).Exists(context.Background(), "tok")
		errutil.AssertErrorCode(t, err, "REVOKED_TOKEN_LOOKUP_FAILED")
	})
}
