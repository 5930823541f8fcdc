// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

// Package mail delivers verification codes to account holders.
package mail

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"

	"github.com/samber/oops"

	"github.com/keystone-crm/keystone/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Subjects by code purpose.
var subjects = map[auth.Purpose]string{
	auth.PurposeEmailVerify:   "Verify Your Email",
	auth.PurposePasswordReset: "Your Password Reset Code",
}

// templateNames by code purpose.
var templateNames = map[auth.Purpose]string{
	auth.PurposeEmailVerify:   "verify_email.html",
	auth.PurposePasswordReset: "password_reset.html",
}

type templateData struct {
	Name    string
	Code    string
	Minutes int
}

// render returns the subject and HTML body for msg.
func render(msg auth.CodeMessage) (subject, body string, err error) {
	name, ok := templateNames[msg.Purpose]
	if !ok {
		return "", "", oops.Code("MAIL_RENDER_FAILED").With("purpose", msg.Purpose).Errorf("no template for purpose")
	}
	greeting := msg.FirstName
	if greeting == "" {
		greeting = msg.To
	}
	var buf bytes.Buffer
	err = templates.ExecuteTemplate(&buf, name, templateData{
		Name:    greeting,
		Code:    msg.Code,
		Minutes: int(auth.CodeTTL.Minutes()),
	})
	if err != nil {
		return "", "", oops.Code("MAIL_RENDER_FAILED").With("template", name).Wrap(err)
	}
	return subjects[msg.Purpose], buf.String(), nil
}

// LogMailer writes codes to the log instead of sending them. It is meant for
// development.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// SendCode logs the message.
func (m *LogMailer) SendCode(ctx context.Context, msg auth.CodeMessage) error {
	subject, _, err := render(msg)
	if err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "verification code",
		"to", msg.To,
		"subject", subject,
		"purpose", msg.Purpose,
		"code", msg.Code)
	return nil
}

var (
	_ auth.Mailer = (*LogMailer)(nil)
	_ auth.Mailer = (*SMTPMailer)(nil)
)
