// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role scopes what a token may be used for.
type Role string

// Token roles.
const (
	RoleLogin         Role = "LOGIN"
	RoleResetPassword Role = "RESET_PASSWORD"
	RoleAuthorization Role = "AUTHORIZATION"
)

// Default token lifetimes.
const (
	DefaultLoginTTL         = 24 * time.Hour
	DefaultResetTTL         = 5 * time.Minute
	DefaultAuthorizationTTL = time.Hour
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleLogin, RoleResetPassword, RoleAuthorization:
		return true
	}
	return false
}

// Claims is the JWT payload.
type Claims struct {
	AccountID string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      Role   `json:"jwt_role"`
	jwt.RegisteredClaims
}

// DecodedSession is the verified content of a token. It lives for one
// request and is never stored.
type DecodedSession struct {
	AccountID ulid.ULID
	Username  string
	Email     string
	FullName  string
	Role      Role
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RequireRole fails with CodeTokenRoleForbidden unless the session role is
// one of roles.
func (s *DecodedSession) RequireRole(roles ...Role) error {
	if slices.Contains(roles, s.Role) {
		return nil
	}
	return oops.Code(CodeTokenRoleForbidden).
		With("role", s.Role).
		With("accepted", roles).
		Errorf("token role not accepted")
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Secret           []byte
	Issuer           string
	LoginTTL         time.Duration
	ResetTTL         time.Duration
	AuthorizationTTL time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttls   map[Role]time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenIssuer creates a TokenIssuer. Zero TTLs select the defaults.
func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &TokenIssuer{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttls: map[Role]time.Duration{
			RoleLogin:         orDefault(cfg.LoginTTL, DefaultLoginTTL),
			RoleResetPassword: orDefault(cfg.ResetTTL, DefaultResetTTL),
			RoleAuthorization: orDefault(cfg.AuthorizationTTL, DefaultAuthorizationTTL),
		},
		now:    now,
		parser: jwt.NewParser(opts...),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// TTL returns the configured lifetime for role.
func (t *TokenIssuer) TTL(role Role) time.Duration {
	return t.ttls[role]
}

// Issue signs a token for account with the given lifetime and role.
// A zero ttl selects the configured lifetime for role.
func (t *TokenIssuer) Issue(account *Account, ttl time.Duration, role Role) (string, error) {
	if len(t.secret) == 0 {
		return "", oops.Code(CodeTokenSigningFailed).Errorf("signing key is not configured")
	}
	if !role.Valid() {
		return "", oops.Code(CodeTokenSigningFailed).With("role", role).Errorf("unknown token role")
	}
	if ttl <= 0 {
		ttl = t.ttls[role]
	}

	now := t.now()
	claims := Claims{
		AccountID: account.ID.String(),
		Username:  account.Username,
		Email:     account.Email,
		FullName:  account.FullName(),
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Issuer:    t.issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", oops.Code(CodeTokenSigningFailed).With("role", role).Wrap(err)
	}
	return signed, nil
}

// Verify checks the signature and claims of token.
func (t *TokenIssuer) Verify(token string) (*DecodedSession, error) {
	if token == "" {
		return nil, oops.Code(CodeTokenRequired).Errorf("token required")
	}

	var claims Claims
	_, err := t.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		if len(t.secret) == 0 {
			return nil, errors.New("signing key is not configured")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if !claims.Role.Valid() {
		return nil, oops.Code(CodeTokenInvalid).With("role", claims.Role).Errorf("unknown token role")
	}
	id, err := ulid.Parse(claims.AccountID)
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).Errorf("invalid account id claim")
	}

	session := &DecodedSession{
		AccountID: id,
		Username:  claims.Username,
		Email:     claims.Email,
		FullName:  claims.FullName,
		Role:      claims.Role,
		TokenID:   claims.ID,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func classifyTokenError(err error) error {
	var code string
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		code = CodeTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		code = CodeTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		code = CodeTokenExpired
	default:
		code = CodeTokenInvalid
	}
	return oops.Code(code).Wrapf(err, "token rejected")
}
