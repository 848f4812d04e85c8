package mailer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

type SMTPMailer struct {
	Host   string
	Port   int
	From   string
	User   string
	Pass   string
	UseTLS bool
}

func NewSMTPMailer(host string, port int, from, user, pass string, useTLS bool) *SMTPMailer {
	return &SMTPMailer{
		Host:   strings.TrimSpace(host),
		Port:   port,
		From:   strings.TrimSpace(from),
		User:   strings.TrimSpace(user),
		Pass:   strings.TrimSpace(pass),
		UseTLS: useTLS,
	}
}

func (s *SMTPMailer) SendRequestReceived(toEmail, toName, serviceName string) error {
	subject := "We received your appointment request"
	text, html := requestReceivedBody(toName, serviceName)
	return s.sendEmail(toEmail, subject, text, html)
}

func (s *SMTPMailer) SendRequestConfirmed(toEmail, toName, serviceName string, scheduledAt time.Time) error {
	subject := "Your appointment is confirmed"
	text, html := requestConfirmedBody(toName, serviceName, scheduledAt)
	return s.sendEmail(toEmail, subject, text, html)
}

func (s *SMTPMailer) SendRequestRescheduled(toEmail, toName, serviceName string, suggestedAt time.Time) error {
	subject := "A new time has been suggested for your appointment"
	text, html := requestRescheduledBody(toName, serviceName, suggestedAt)
	return s.sendEmail(toEmail, subject, text, html)
}

func (s *SMTPMailer) sendEmail(toEmail, subject, text, html string) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("empty recipient email")
	}

	var buf bytes.Buffer
	boundary := "mixed-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", s.From)
	fmt.Fprintf(&buf, "To: %s\r\n", toEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", text)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", html)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Mailpit or development SMTP (no auth, no TLS)
	if !s.UseTLS && s.User == "" {
		return smtp.SendMail(addr, nil, s.From, []string{toEmail}, buf.Bytes())
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	// Plain SMTP first (with STARTTLS if the server offers it)
	if err := smtp.SendMail(addr, auth, s.From, []string{toEmail}, buf.Bytes()); err == nil {
		return nil
	}

	// Fallback to implicit TLS (port 465)
	tlsCfg := &tls.Config{ServerName: s.Host}
	conn, err := tls.Dial("tcp", addr, tlsCfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return err
	}
	defer c.Quit()

	if s.User != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(s.From); err != nil {
		return err
	}
	if err := c.Rcpt(toEmail); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	return w.Close()
}
