// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

// Package auth provides the credential and session primitives for Keystone.
//
// # Domain Types
//
// Account and VerificationCode should be created through their
// constructors:
//   - NewAccount - validates the username and normalizes the email
//   - CodeGenerator.New - draws a code from CodeAlphabet with a CodeTTL expiry
//
// Repository implementations receive pre-validated values.
//
// # Credentials
//
// PasswordHasher hides the hashing algorithm (bcrypt or argon2id). HashPool
// bounds how many hashes run at once. TokenIssuer signs and verifies the
// LOGIN, RESET_PASSWORD and AUTHORIZATION tokens. RevocationGuard keeps the
// ledger of tokens that were logged out or consumed.
//
// # Service
//
// Service composes the above into registration, email verification, login,
// password reset and logout. Every failure carries an oops code from
// errors.go so the HTTP layer can map it to a status.
package auth
