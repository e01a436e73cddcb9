package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
)

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// SMTPNotifier mails a requested PIN to a manager.
type SMTPNotifier struct {
	cfg  SMTPConfig
	tmpl *template.Template
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var pinEmailTemplate = template.Must(template.New("pin").Parse(`<p>Hello {{.Name}},</p>
<p>Your login PIN is <strong>{{.PIN}}</strong>.</p>
<p>If you did not ask for a PIN you can ignore this message.</p>`))

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.From == "" {
		cfg.From = cfg.User
	}

	return &SMTPNotifier{
		cfg:  cfg,
		tmpl: pinEmailTemplate,
		send: smtp.SendMail,
	}
}

func (n *SMTPNotifier) SendPIN(ctx context.Context, in SendPINInput) error {
	var body bytes.Buffer

	if err := n.tmpl.Execute(&body, in); err != nil {
		return fmt.Errorf("render pin email: %w", err)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: Your login PIN\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		n.cfg.From, in.Email, body.String(),
	))

	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	}

	addr := net.JoinHostPort(n.cfg.Host, n.cfg.Port)

	// smtp.SendMail has no context; run it aside so the caller's deadline still applies.
	done := make(chan error, 1)
	go func() {
		done <- n.send(addr, auth, n.cfg.From, []string{in.Email}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send pin email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
