// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone-crm/keystone/internal/store"
	"github.com/keystone-crm/keystone/pkg/errutil"
)

func mockPoolDeps(t *testing.T) (pgxmock.PgxPoolIface, *ServeDeps) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock, &ServeDeps{
		MigrateUp: func(string, *slog.Logger) error { return nil },
		OpenPool: func(context.Context, store.Options) (DBPool, error) {
			return mock, nil
		},
	}
}

func TestPurge_DeletesExpiredRows(t *testing.T) {
	mock, deps := mockPoolDeps(t)
	mock.ExpectExec("DELETE FROM revoked_tokens").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("DELETE FROM verification_codes").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectClose()

	out := new(bytes.Buffer)
	require.NoError(t, runPurgeWithDeps(context.Background(), postgresConfig(), out, deps))
	assert.Equal(t, "Purged 3 verification codes and 2 revoked tokens\n", out.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurge_ReportsFailure(t *testing.T) {
	mock, deps := mockPoolDeps(t)
	mock.ExpectExec("DELETE FROM revoked_tokens").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("DELETE FROM verification_codes").
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectClose()

	out := new(bytes.Buffer)
	err := runPurgeWithDeps(context.Background(), postgresConfig(), out, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, out.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurge_RequiresPostgres(t *testing.T) {
	isolate(t)
	_, err := execute(t, "purge", "--store", "memory")
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	errutil.AssertErrorContext(t, err, "field", "store")
}
