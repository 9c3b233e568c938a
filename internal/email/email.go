// Package email sends transactional mail over SMTP. Failures are for the
// caller to log; nothing in the primary request path should block on mail.
package email

import (
	"fmt"
	"net/smtp"
	"os"
)

// Mailer holds the SMTP configuration.
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// NewMailerFromEnv builds a Mailer from SMTP_* environment variables.
// Returns nil when no host is configured, and callers treat a nil Mailer as
// "mail disabled".
func NewMailerFromEnv() *Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "no-reply@example.com"
	}

	return &Mailer{
		Host:     host,
		Port:     port,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     from,
	}
}

// Send delivers a single HTML email.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	message := []byte("To: " + to + "\r\n" +
		"From: " + m.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		htmlBody + "\r\n")

	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
	if err := smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
