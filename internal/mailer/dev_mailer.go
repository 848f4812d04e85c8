package mailer

import (
	"time"

	"github.com/salonmarlowe/bookings/pkg/logger"
)

// DevMailer logs instead of sending. Default outside production.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendRequestReceived(toEmail, toName, serviceName string) error {
	logger.Info("[DEV MAIL] Request received",
		"to", toEmail,
		"name", toName,
		"service", serviceName,
	)
	return nil
}

func (d *DevMailer) SendRequestConfirmed(toEmail, toName, serviceName string, scheduledAt time.Time) error {
	logger.Info("[DEV MAIL] Request confirmed",
		"to", toEmail,
		"name", toName,
		"service", serviceName,
		"scheduled_at", scheduledAt,
	)
	return nil
}

func (d *DevMailer) SendRequestRescheduled(toEmail, toName, serviceName string, suggestedAt time.Time) error {
	logger.Info("[DEV MAIL] Request rescheduled",
		"to", toEmail,
		"name", toName,
		"service", serviceName,
		"suggested_at", suggestedAt,
	)
	return nil
}
