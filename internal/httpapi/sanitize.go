// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package httpapi

import (
	"html"
	"regexp"
	"strings"

	"github.com/keystone-crm/keystone/internal/auth"
)

var stripChars = regexp.MustCompile(`[\x00-\x1F\s;'"\\<>]`)

// clean trims and HTML-escapes s, then strips control characters,
// whitespace, quotes, semicolons, backslashes and angle brackets.
func clean(s string) string {
	return stripChars.ReplaceAllString(html.EscapeString(strings.TrimSpace(s)), "")
}

func cleanEmail(s string) string {
	return auth.NormalizeEmail(clean(s))
}

// Passwords are never rewritten; the stored hash must match what the user
// typed.

func (r *registrationRequest) sanitize() {
	r.Username = clean(r.Username)
	r.Email = cleanEmail(r.Email)
	r.FirstName = clean(r.FirstName)
	r.LastName = clean(r.LastName)
}

func (r *emailRequest) sanitize() {
	r.Email = cleanEmail(r.Email)
}

func (r *codeRequest) sanitize() {
	r.Email = cleanEmail(r.Email)
	r.VerificationCode = clean(r.VerificationCode)
}

func (r *loginRequest) sanitize() {
	r.Username = clean(r.Username)
}
