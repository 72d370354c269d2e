package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Mailer delivers admin alert mail over SMTP. Callers treat delivery as
// best-effort; a nil or unconfigured mailer is valid and drops mail.
type Mailer struct {
	addr     string
	username string
	password string
	from     string
}

type Config struct {
	Addr     string
	Username string
	Password string
	From     string
}

func New(cfg Config) *Mailer {
	return &Mailer{
		addr:     strings.TrimSpace(cfg.Addr),
		username: cfg.Username,
		password: cfg.Password,
		from:     strings.TrimSpace(cfg.From),
	}
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.addr != "" && m.from != ""
}

func (m *Mailer) Send(to []string, subject, body string) error {
	if !m.Enabled() {
		return fmt.Errorf("mailer is not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	var auth sasl.Client
	if m.username != "" {
		auth = sasl.NewPlainClient("", m.username, m.password)
	}

	msg := strings.NewReader(
		"From: " + m.from + "\r\n" +
			"To: " + strings.Join(to, ", ") + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n" +
			"\r\n" +
			body + "\r\n")

	if err := smtp.SendMail(m.addr, auth, m.from, to, msg); err != nil {
		return fmt.Errorf("send admin mail: %w", err)
	}
	return nil
}
