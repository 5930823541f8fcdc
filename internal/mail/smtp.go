// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystone Contributors

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/keystone-crm/keystone/internal/auth"
)

// SMTP defaults.
const (
	DefaultPort       = 587
	DefaultMaxRetries = 3
	DefaultTimeout    = 10 * time.Second
	defaultBackoff    = 200 * time.Millisecond
)

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// InsecureSkipVerify disables certificate checks after STARTTLS. Only
	// for local relays such as MailHog.
	InsecureSkipVerify bool

	MaxRetries uint64
	Backoff    time.Duration
	Timeout    time.Duration
}

// SMTPMailer sends HTML code messages over SMTP, upgrading with STARTTLS
// when the server offers it.
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *net.Dialer
}

// NewSMTPMailer validates cfg and creates an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("field", "host").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("field", "from").Errorf("sender address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &SMTPMailer{cfg: cfg, dialer: &net.Dialer{Timeout: cfg.Timeout}}, nil
}

// SendCode renders msg and delivers it, retrying transient failures.
func (m *SMTPMailer) SendCode(ctx context.Context, msg auth.CodeMessage) error {
	subject, body, err := render(msg)
	if err != nil {
		return err
	}
	data := m.compose(msg.To, subject, body)

	attempts := 0
	b := retry.WithMaxRetries(m.cfg.MaxRetries, retry.NewExponential(m.cfg.Backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		err := m.send(ctx, msg.To, data)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("purpose", msg.Purpose).
			With("attempts", attempts).
			Wrap(err)
	}
	return nil
}

func (m *SMTPMailer) compose(to, subject, body string) []byte {
	var sb strings.Builder
	header := func(k, v string) {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(v)
		sb.WriteString("\r\n")
	}
	header("From", m.cfg.From)
	header("To", to)
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/html; charset=UTF-8")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}

func (m *SMTPMailer) send(ctx context.Context, to string, data []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err //nolint:wrapcheck // classified by transient
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline) //nolint:errcheck // best effort
	} else {
		_ = conn.SetDeadline(time.Now().Add(m.cfg.Timeout)) //nolint:errcheck // best effort
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err //nolint:wrapcheck // classified by transient
	}
	defer func() {
		if c.Quit() != nil {
			_ = c.Close()
		}
	}()

	if err := c.Hello("localhost"); err != nil {
		return err //nolint:wrapcheck // classified by transient
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		tlsCfg := &tls.Config{
			ServerName:         m.cfg.Host,
			InsecureSkipVerify: m.cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local relays
			MinVersion:         tls.VersionTLS12,
		}
		if err := c.StartTLS(tlsCfg); err != nil {
			return err //nolint:wrapcheck // classified by transient
		}
	}
	if m.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			plain := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
			if err := c.Auth(plain); err != nil {
				return err //nolint:wrapcheck // classified by transient
			}
		}
	}

	if err := c.Mail(m.cfg.From); err != nil {
		return err //nolint:wrapcheck // classified by transient
	}
	if err := c.Rcpt(to); err != nil {
		return err //nolint:wrapcheck // classified by transient
	}
	w, err := c.Data()
	if err != nil {
		return err //nolint:wrapcheck // classified by transient
	}
	if _, err := w.Write(data); err != nil {
		return err //nolint:wrapcheck // classified by transient
	}
	return w.Close() //nolint:wrapcheck // classified by transient
}

// transient reports whether a send error is worth retrying: network
// failures and 4xx SMTP replies.
func transient(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 400 && tpErr.Code < 500
	}
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, net.ErrClosed)
}
