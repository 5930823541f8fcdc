// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func startServer(t *testing.T, ready ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", ready, nil)
	if _, err := server.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	if err != nil {
		t.Fatalf("failed to GET %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, nil)

	status, body := get(t, server, "/metrics")
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
	for _, want := range []string{"# HELP", "# TYPE", "go_", "process_"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestServer_LivenessReturns200(t *testing.T) {
	server := startServer(t, func(context.Context) error { return errors.New("db down") })

	status, body := get(t, server, "/healthz/liveness")
	if status != http.StatusOK {
		t.Errorf("liveness should not depend on readiness, got %d", status)
	}
	if body != "ok\n" {
		t.Errorf("expected body 'ok\\n', got %q", body)
	}
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		check  ReadinessChecker
		status int
		body   string
	}{
		{"ready", func(context.Context) error { return nil }, http.StatusOK, "ok\n"},
		{"store unreachable", func(context.Context) error { return errors.New("connection refused") },
			http.StatusServiceUnavailable, "not ready\n"},
		{"nil checker", nil, http.StatusOK, "ok\n"},
		{"check receives a deadline", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		}, http.StatusOK, "ok\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.check)
			status, body := get(t, server, "/healthz/readiness")
			if status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, status)
			}
			if body != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, body)
			}
		})
	}
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)
	if _, err := server.Start(); err == nil {
		t.Error("expected error on second Start()")
	}
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)
	if err := server.Stop(context.Background()); err != nil {
		t.Errorf("Stop on a server that never started should be a no-op: %v", err)
	}
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)
	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	}()

	_ = server.listener.Close()

	select {
	case serveErr := <-errCh:
		if serveErr == nil {
			t.Error("expected an error from the error channel after closing listener")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error on error channel")
	}
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil)
	errCh, err := server.Start()
	if err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		t.Fatalf("failed to stop server: %v", err)
	}

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			t.Errorf("unexpected error on normal shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error channel to close")
	}
}

func TestServer_MetricsIncrement(t *testing.T) {
	server := startServer(t, nil)

	m := server.Metrics()
	m.ObserveRequest("auth.login", http.MethodPost, http.StatusOK, 15*time.Millisecond)
	m.ObserveOutcome("login", "AUTH_INVALID_CREDENTIALS")
	m.ObserveOutcome("login", "AUTH_INVALID_CREDENTIALS")
	m.ObserveHash("compare", 80*time.Millisecond)
	m.ObservePurge("revoked_tokens", 4, nil)
	m.ObservePurge("verification_codes", 0, errors.New("timeout"))

	_, body := get(t, server, "/metrics")
	for _, want := range []string{
		`keystone_http_requests_total{method="POST",route="auth.login",status="200"} 1`,
		`keystone_auth_outcomes_total{operation="login",outcome="AUTH_INVALID_CREDENTIALS"} 2`,
		`keystone_password_hash_duration_seconds_count{operation="compare"} 1`,
		`keystone_purged_rows_total{kind="revoked_tokens"} 4`,
		`keystone_purge_runs_total{result="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}
