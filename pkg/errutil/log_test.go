// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package errutil_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone-crm/keystone/pkg/errutil"
)

func TestLogError_WithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("TEST_ERROR").
		With("key", "value").
		Errorf("something failed")

	errutil.LogError(logger, "operation failed", err)

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Equal(t, "operation failed", logEntry["msg"])
	assert.Equal(t, "TEST_ERROR", logEntry["code"])
	assert.Contains(t, logEntry, "context")
}

func TestLogError_WithStandardError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errutil.LogError(logger, "operation failed", errors.New("standard error"))

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "ERROR", logEntry["level"])
	assert.Contains(t, logEntry["error"], "standard error")
	assert.NotContains(t, logEntry, "code")
}

func TestLogErrorContext_NilLoggerUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	errutil.LogErrorContext(context.Background(), nil, "boom", oops.Code("X").Errorf("x"))

	assert.Contains(t, buf.String(), `"code":"X"`)
}

func TestCode(t *testing.T) {
	t.Run("oops error", func(t *testing.T) {
		assert.Equal(t, "A_CODE", errutil.Code(oops.Code("A_CODE").Errorf("a")))
	})

	t.Run("wrapped standard error keeps the oops code", func(t *testing.T) {
		err := oops.Code("REPO_FAILED").Wrap(errors.New("connection refused"))
		assert.Equal(t, "REPO_FAILED", errutil.Code(err))
	})

	t.Run("standard error", func(t *testing.T) {
		assert.Empty(t, errutil.Code(errors.New("plain")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, errutil.Code(nil))
	})
}

func TestContext(t *testing.T) {
	err := oops.With("field", "password").Errorf("bad")
	assert.Equal(t, "password", errutil.Context(err)["field"])
	assert.Nil(t, errutil.Context(errors.New("plain")))
}
