package mailer

import (
	"fmt"
	"time"
)

const timeLayout = "Monday, January 2 2006 at 3:04 PM"

func requestReceivedBody(toName, serviceName string) (text, html string) {
	text = fmt.Sprintf("Hi %s,\n\nThanks for requesting a %s appointment at Salon Marlowe. "+
		"We'll review your preferred times and confirm shortly.\n", toName, serviceName)
	html = fmt.Sprintf(`
		<h2>Thanks for your request!</h2>
		<p>Hi %s,</p>
		<p>We received your request for <strong>%s</strong> and will review your preferred times shortly.</p>
		<p>You'll get another email once your appointment is confirmed.</p>
	`, toName, serviceName)
	return text, html
}

func requestConfirmedBody(toName, serviceName string, scheduledAt time.Time) (text, html string) {
	when := scheduledAt.Format(timeLayout)
	text = fmt.Sprintf("Hi %s,\n\nYour %s appointment is confirmed for %s.\n\nSee you soon!\n",
		toName, serviceName, when)
	html = fmt.Sprintf(`
		<h2>Appointment confirmed</h2>
		<p>Hi %s,</p>
		<p>Your <strong>%s</strong> appointment is confirmed for <strong>%s</strong>.</p>
		<p>See you soon!</p>
	`, toName, serviceName, when)
	return text, html
}

func requestRescheduledBody(toName, serviceName string, suggestedAt time.Time) (text, html string) {
	when := suggestedAt.Format(timeLayout)
	text = fmt.Sprintf("Hi %s,\n\nNone of your preferred times were available for %s. "+
		"We can offer %s instead. Please submit a new request if that works for you.\n",
		toName, serviceName, when)
	html = fmt.Sprintf(`
		<h2>New time suggested</h2>
		<p>Hi %s,</p>
		<p>None of your preferred times were available for <strong>%s</strong>.</p>
		<p>We can offer <strong>%s</strong> instead. Please submit a new request if that works for you.</p>
	`, toName, serviceName, when)
	return text, html
}
