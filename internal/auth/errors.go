// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes for expected rejections. Anything carrying a code outside this
// list is an internal failure.
const (
	CodeValidation = "AUTH_VALIDATION"

	CodeUsernameEmailTaken = "AUTH_USERNAME_EMAIL_TAKEN"
	CodeUsernameTaken      = "AUTH_USERNAME_TAKEN"
	CodeEmailTaken         = "AUTH_EMAIL_TAKEN"

	CodeAccountNotFound       = "AUTH_ACCOUNT_NOT_FOUND"
	CodeVerifyAccountNotFound = "AUTH_VERIFY_ACCOUNT_NOT_FOUND"
	CodeAlreadyVerified       = "AUTH_ALREADY_VERIFIED"

	CodeCodeUnavailable = "AUTH_CODE_UNAVAILABLE"
	CodeCodeExpired     = "AUTH_CODE_EXPIRED"
	CodeCodeMismatch    = "AUTH_CODE_MISMATCH"

	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmailNotVerified   = "AUTH_EMAIL_NOT_VERIFIED"

	CodeTokenRequired         = "TOKEN_REQUIRED"
	CodeTokenRevoked          = "AUTH_TOKEN_REVOKED"
	CodeTokenExpired          = "TOKEN_EXPIRED"
	CodeTokenMalformed        = "TOKEN_MALFORMED"
	CodeTokenSignatureInvalid = "TOKEN_SIGNATURE_INVALID"
	CodeTokenInvalid          = "TOKEN_INVALID"
	CodeTokenRoleForbidden    = "TOKEN_ROLE_FORBIDDEN"
	CodeTokenSigningFailed    = "TOKEN_SIGNING_FAILED"

	CodeHashFailed = "AUTH_HASH_FAILED"
)
