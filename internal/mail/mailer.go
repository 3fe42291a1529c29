// Package mail delivers the password-reset email. The service depends only
// on Sender; SMTP is one implementation, LogSender the development one.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"strings"
	"time"
)

// Sender dispatches a password-reset message carrying the opaque token.
// Implementations must respect ctx cancellation and return an error when the
// message could not be handed off; the caller decides how that surfaces.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, firstName, token string) error
}

// SMTPConfig configures SMTPSender. ResetURL is the frontend page the emailed
// link points at; token and email ride along as query parameters.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	ResetURL    string
	SendTimeout time.Duration
}

// SMTPSender delivers over plain SMTP with AUTH when credentials are set.
type SMTPSender struct {
	config SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &SMTPSender{config: cfg}
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, firstName, token string) error {
	deadline := time.Now().Add(s.config.SendTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	body := buildResetMessage(s.config.From, to, firstName, resetLink(s.config.ResetURL, to, token))

	conn, err := (&net.Dialer{Deadline: deadline}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}

// LogSender logs the reset link instead of delivering it. For development
// and tests only; the token ends up in the log stream.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to, firstName, token string) error {
	s.log.InfoContext(ctx, "password reset requested", "to", to, "token", token)
	return nil
}

func resetLink(base, email, token string) string {
	v := url.Values{}
	v.Set("token", token)
	v.Set("email", email)
	return base + "?" + v.Encode()
}

func buildResetMessage(from, to, firstName, link string) string {
	greeting := "Hello"
	if firstName != "" {
		greeting = "Hello " + firstName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	b.WriteString("Subject: Password Reset Request\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "%s,\r\n\r\n", greeting)
	b.WriteString("You have requested to reset your password. Open the link below to choose a new one:\r\n\r\n")
	fmt.Fprintf(&b, "%s\r\n\r\n", link)
	b.WriteString("This link will expire in 1 hour.\r\n")
	b.WriteString("If you did not request this password reset, please ignore this email.\r\n")
	return b.String()
}
