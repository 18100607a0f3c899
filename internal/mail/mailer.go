// Package mail sends plain-text notification mail over SMTP. Sending
// is fire-and-forget from the callers' perspective: a failure surfaces
// as an error but never rolls back state written before it.
package mail

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"
)

type Sender interface {
	Send(recipient, subject, tmpl string, data any) error
}

type SMTPMailer struct {
	Addr string
	From string
}

func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{Addr: addr, From: from}
}

func (m *SMTPMailer) Send(recipient, subject, tmpl string, data any) error {
	if m == nil || m.Addr == "" {
		return nil
	}

	t, err := template.New("mail").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("mail: parse template: %w", err)
	}

	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n", m.From, recipient, subject)
	if err := t.Execute(&body, data); err != nil {
		return fmt.Errorf("mail: execute template: %w", err)
	}

	if err := smtp.SendMail(m.Addr, nil, m.From, []string{recipient}, body.Bytes()); err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	return nil
}
