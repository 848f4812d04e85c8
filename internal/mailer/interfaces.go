package mailer

import "time"

// Service sends the customer-facing notification emails. All sends are best
// effort; callers log failures and move on.
type Service interface {
	SendRequestReceived(toEmail, toName, serviceName string) error
	SendRequestConfirmed(toEmail, toName, serviceName string, scheduledAt time.Time) error
	SendRequestRescheduled(toEmail, toName, serviceName string, suggestedAt time.Time) error
}
