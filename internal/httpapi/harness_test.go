// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/auth/memory"
	"github.com/keystone-crm/keystone/internal/httpapi"
	"github.com/keystone-crm/keystone/internal/ratelimit"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	goodPassword = "Abc123!@"
)

// tb is the part of testing.TB and GinkgoT() the harness needs.
type tb interface {
	Helper()
	Cleanup(func())
	Fatalf(format string, args ...any)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureMailer keeps the last code sent per address and purpose.
type captureMailer struct {
	mu      sync.Mutex
	sent    map[string]string
	explode bool
}

func (m *captureMailer) SendCode(_ context.Context, msg auth.CodeMessage) error {
	if m.explode {
		panic("mail transport exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[msg.To+"|"+string(msg.Purpose)] = msg.Code
	return nil
}

func (m *captureMailer) code(email string, purpose auth.Purpose) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[email+"|"+string(purpose)]
}

// brokenAccounts fails every username lookup.
type brokenAccounts struct {
	*memory.AccountRepository
}

func (brokenAccounts) GetByUsername(context.Context, string) (*auth.Account, error) {
	return nil, io.ErrUnexpectedEOF
}

type harness struct {
	t       tb
	api     *httpapi.API
	handler http.Handler
	store   *memory.Store
	mailer  *captureMailer
	clock   *fakeClock
	limiter *ratelimit.Limiter
}

type harnessConfig struct {
	svc auth.Config
	lim ratelimit.Config
	api httpapi.Config
}

type harnessOption func(*harnessConfig)

func withAccounts(repo auth.AccountRepository) harnessOption {
	return func(c *harnessConfig) { c.svc.Accounts = repo }
}

func withOverrides(p ...ratelimit.Policy) harnessOption {
	return func(c *harnessConfig) { c.lim.Overrides = p }
}

func withTrustProxy() harnessOption {
	return func(c *harnessConfig) { c.api.TrustProxy = true }
}

func newHarness(t tb, opts ...harnessOption) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	mailer := &captureMailer{sent: make(map[string]string)}

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := harnessConfig{svc: auth.Config{
		Accounts: store.Accounts,
		Codes:    store.Codes,
		Revoked:  store.Revoked,
		Hashes:   auth.NewHashPool(hasher, 2, nil),
		Tokens: auth.NewTokenIssuer(auth.TokenConfig{
			Secret: []byte(testSecret),
			Issuer: "keystone-test",
			Now:    clock.Now,
		}),
		Mailer:    mailer,
		Generator: auth.NewCodeGenerator(auth.WithCodeClock(clock.Now)),
		Logger:    logger,
		Now:       clock.Now,
	}}
	cfg.lim = ratelimit.Config{Now: clock.Now, CleanupInterval: time.Hour}
	cfg.api = httpapi.Config{Logger: logger, Now: clock.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	svc, err := auth.NewService(cfg.svc)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	limiter, err := ratelimit.New(cfg.lim)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	t.Cleanup(limiter.Close)

	cfg.api.Service = svc
	cfg.api.Limiter = limiter
	api, err := httpapi.New(cfg.api)
	if err != nil {
		t.Fatalf("api: %v", err)
	}
	return &harness{
		t:       t,
		api:     api,
		handler: api.Handler(),
		store:   store,
		mailer:  mailer,
		clock:   clock,
		limiter: limiter,
	}
}

type request struct {
	method string
	path   string
	body   any
	token  string
	header map[string]string
	remote string
}

func (h *harness) do(req request) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader = http.NoBody
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(data)
	}
	method := req.method
	if method == "" {
		method = http.MethodPost
	}
	r := httptest.NewRequest(method, req.path, body)
	r.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		r.Header.Set("Authorization", req.token)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}
	if req.remote != "" {
		r.RemoteAddr = req.remote
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)
	return rec
}

func (h *harness) post(path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.do(request{path: path, body: body})
}

func registration(username, email string) map[string]any {
	return map[string]any{
		"username":   username,
		"email":      email,
		"first_name": "Jane",
		"last_name":  "Doe",
		"age":        30,
		"password":   goodPassword,
	}
}

func (h *harness) register(username, email string) {
	h.t.Helper()
	if rec := h.post("/api/auth/registration", registration(username, email)); rec.Code != http.StatusCreated {
		h.t.Fatalf("registration: %d %s", rec.Code, rec.Body.String())
	}
}

// verify submits the email verification code last mailed to email.
func (h *harness) verify(email string) {
	h.t.Helper()
	code := h.mailer.code(email, auth.PurposeEmailVerify)
	rec := h.post("/api/auth/verify-email", map[string]any{"email": email, "verification_code": code})
	if rec.Code != http.StatusOK {
		h.t.Fatalf("verify email: %d %s", rec.Code, rec.Body.String())
	}
}

// registerAndLogin creates a verified account and returns its LOGIN token.
func (h *harness) registerAndLogin(username, email string) string {
	h.t.Helper()
	h.register(username, email)
	h.verify(email)
	rec := h.post("/api/auth/login", map[string]any{"username": username, "password": goodPassword})
	if rec.Code != http.StatusOK {
		h.t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	return decodeToken(h.t, rec)
}

func decodeToken(t tb, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httpapi.TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return resp.Token
}

func decodeError(t tb, rec *httptest.ResponseRecorder) httpapi.ErrorBody {
	t.Helper()
	var body httpapi.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body
}
