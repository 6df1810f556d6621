// Package mailer delivers one-time codes to account holders.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// Sender delivers a rendered code. A nil error means the message was accepted
// by the transport.
type Sender interface {
	Send(ctx context.Context, to string, code string, ttl time.Duration) error
}

var bodyTemplate = template.Must(template.New("otp").Parse(
	`Your storefront verification code is {{.Code}}.

It expires in {{.Minutes}} minute{{if ne .Minutes 1}}s{{end}}. If you did not request it, you can ignore this email.
`))

type message struct {
	Code    string
	Minutes int
}

func render(code string, ttl time.Duration) (string, error) {
	minutes := int(math.Ceil(ttl.Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, message{Code: code, Minutes: minutes}); err != nil {
		return "", fmt.Errorf("render otp message: %w", err)
	}
	return buf.String(), nil
}

// LogSender writes the message to the log instead of sending it. Development only.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to string, code string, ttl time.Duration) error {
	body, err := render(code, ttl)
	if err != nil {
		return err
	}

	// otp_body is not on the redaction list.
	s.logger.InfoContext(ctx, "otp email (log driver)", "to", to, "otp_body", body)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, to string, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := render(code, ttl)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	msg := buildMessage(s.cfg.From, to, "Your verification code", body)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

func buildMessage(from string, to string, subject string, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
