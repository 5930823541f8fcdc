// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package auth

import "context"

// CodeMessage is a verification code addressed to an account.
type CodeMessage struct {
	To        string
	FirstName string
	Code      string
	Purpose   Purpose
}

// Mailer delivers verification codes.
type Mailer interface {
	SendCode(ctx context.Context, msg CodeMessage) error
}
