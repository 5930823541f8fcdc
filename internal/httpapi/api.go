// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

// Package httpapi serves the /api/auth endpoints.
//
// Every route runs the same ordered pipeline: rate limit, token check
// (token routes only), body validation, sanitization and finally the
// handler. Each step either lets the request continue or ends it with an
// error that fail renders as the uniform error body.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/keystone-crm/keystone/internal/auth"
	"github.com/keystone-crm/keystone/internal/observability"
	"github.com/keystone-crm/keystone/internal/ratelimit"
)

// DefaultRequestTimeout bounds the work done for one request.
const DefaultRequestTimeout = 30 * time.Second

// Config holds the collaborators of an API.
type Config struct {
	Service *auth.Service
	Limiter *ratelimit.Limiter

	// Metrics is optional.
	Metrics *observability.Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// TrustProxy takes the client address from X-Forwarded-For.
	TrustProxy     bool
	RequestTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// API is the HTTP front of the auth service.
type API struct {
	svc        *auth.Service
	limiter    *ratelimit.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
	validate   *validator.Validate
	trustProxy bool
	timeout    time.Duration
	now        func() time.Time

	handler http.Handler
}

// New creates an API.
func New(cfg Config) (*API, error) {
	if cfg.Service == nil {
		return nil, oops.Code("HTTPAPI_CONFIG_INVALID").Errorf("auth service is required")
	}
	if cfg.Limiter == nil {
		return nil, oops.Code("HTTPAPI_CONFIG_INVALID").Errorf("rate limiter is required")
	}
	a := &API{
		svc:        cfg.Service,
		limiter:    cfg.Limiter,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		validate:   newValidator(),
		trustProxy: cfg.TrustProxy,
		timeout:    cfg.RequestTimeout,
		now:        cfg.Now,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.timeout <= 0 {
		a.timeout = DefaultRequestTimeout
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.handler = a.requestID(a.recoverer(a.routes()))
	return a, nil
}

// Handler returns the root handler.
func (a *API) Handler() http.Handler {
	return a.handler
}

// Route names. They key rate-limit policies and metrics labels.
const (
	RouteRegistration   = "auth.registration"
	RouteVerifyEmail    = "auth.verify-email"
	RouteGenerateCode   = "auth.generate-verification-code"
	RouteLogin          = "auth.login"
	RouteChangePassword = "auth.change-password"
	RouteVerifyCode     = "auth.verify-code"
	RouteResetPassword  = "auth.reset-password"
	RouteLogout         = "auth.logout"
	RouteRestricted     = "auth.restricted"

	routeUnmatched = "unmatched"
)

func (a *API) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = a.observe(http.HandlerFunc(a.notFound))
	r.MethodNotAllowedHandler = a.observe(http.HandlerFunc(a.methodNotAllowed))
	r.Use(a.observe, a.deadline)

	api := r.PathPrefix("/api/auth").Subrouter()
	api.Handle("/registration", a.pipeline(RouteRegistration, public, a.register)).
		Methods(http.MethodPost).Name(RouteRegistration)
	api.Handle("/verify-email", a.pipeline(RouteVerifyEmail, public, a.verifyEmail)).
		Methods(http.MethodPost).Name(RouteVerifyEmail)
	api.Handle("/generate-verification-code", a.pipeline(RouteGenerateCode, public, a.generateCode)).
		Methods(http.MethodPost).Name(RouteGenerateCode)
	api.Handle("/login", a.pipeline(RouteLogin, public, a.login)).
		Methods(http.MethodPost).Name(RouteLogin)
	api.Handle("/change-password", a.pipeline(RouteChangePassword, public, a.changePassword)).
		Methods(http.MethodPost).Name(RouteChangePassword)
	api.Handle("/verify-code", a.pipeline(RouteVerifyCode, public, a.verifyCode)).
		Methods(http.MethodPost).Name(RouteVerifyCode)
	api.Handle("/reset-password", a.pipeline(RouteResetPassword, tokenWith(auth.RoleResetPassword), a.resetPassword)).
		Methods(http.MethodPost).Name(RouteResetPassword)
	api.Handle("/logout", a.pipeline(RouteLogout, anyToken, a.logout)).
		Methods(http.MethodGet).Name(RouteLogout)
	api.Handle("/restricted", a.pipeline(RouteRestricted, tokenWith(auth.RoleLogin, auth.RoleAuthorization), a.restricted)).
		Methods(http.MethodGet).Name(RouteRestricted)
	return r
}

// handlerFunc is the last pipeline step. A returned error becomes the
// response.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// access says whether a route needs a token and which roles it accepts.
// No roles means any role.
type access struct {
	token bool
	roles []auth.Role
}

var (
	public   = access{}
	anyToken = access{token: true}
)

func tokenWith(roles ...auth.Role) access {
	return access{token: true, roles: roles}
}

// pipeline runs the steps shared by every route ahead of h.
func (a *API) pipeline(route string, acc access, h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := a.limit(w, r, route); err != nil {
			a.fail(w, r, err)
			return
		}
		if acc.token {
			if err := a.authorize(r, acc.roles); err != nil {
				a.fail(w, r, err)
				return
			}
		}
		if err := h(w, r); err != nil {
			a.fail(w, r, err)
		}
	})
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	a.fail(w, r, &httpError{status: http.StatusNotFound, message: "Not Found."})
}

func (a *API) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.fail(w, r, &httpError{status: http.StatusMethodNotAllowed, message: "Method Not Allowed."})
}
