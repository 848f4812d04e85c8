package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendRequestReceived(toEmail, toName, serviceName string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}
	subject := "We received your appointment request"
	text, html := requestReceivedBody(toName, serviceName)
	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendRequestConfirmed(toEmail, toName, serviceName string, scheduledAt time.Time) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}
	subject := "Your appointment is confirmed"
	text, html := requestConfirmedBody(toName, serviceName, scheduledAt)
	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendRequestRescheduled(toEmail, toName, serviceName string, suggestedAt time.Time) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}
	subject := "A new time has been suggested for your appointment"
	text, html := requestRescheduledBody(toName, serviceName, suggestedAt)
	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
