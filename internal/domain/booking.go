package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestConfirmed   RequestStatus = "confirmed"
	RequestCancelled   RequestStatus = "cancelled"
	RequestRescheduled RequestStatus = "rescheduled"
	RequestSuperseded  RequestStatus = "superseded"
)

func ParseRequestStatus(s string) (RequestStatus, bool) {
	switch RequestStatus(s) {
	case RequestPending, RequestConfirmed, RequestCancelled, RequestRescheduled, RequestSuperseded:
		return RequestStatus(s), true
	default:
		return "", false
	}
}

const (
	MinPreferences = 1
	MaxPreferences = 3
)

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Service struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Price           string    `json:"price"`
	MaxConcurrent   int       `json:"max_concurrent"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

type AppointmentRequest struct {
	ID            int64         `json:"id"`
	ManageToken   string        `json:"manage_token,omitempty"`
	CustomerID    int64         `json:"customer_id"`
	ServiceID     int64         `json:"service_id"`
	Status        RequestStatus `json:"status"`
	CustomerNotes string        `json:"customer_notes"`
	AdminNotes    string        `json:"admin_notes"`
	SuggestedAt   *time.Time    `json:"suggested_at,omitempty"`
	DeletedAt     *time.Time    `json:"-"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type TimePreference struct {
	ID          int64     `json:"id"`
	RequestID   int64     `json:"request_id"`
	RequestedAt time.Time `json:"requested_at"`
	Priority    int       `json:"priority"`
	Selected    bool      `json:"selected"`
}

type Appointment struct {
	ID              int64     `json:"id"`
	RequestID       int64     `json:"request_id"`
	PreferenceID    int64     `json:"preference_id"`
	CustomerID      int64     `json:"customer_id"`
	ServiceID       int64     `json:"service_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// AppointmentStatusScheduled is the only status approval ever produces.
const AppointmentStatusScheduled = "scheduled"

// RequestDetail is the full read model for a request: the row itself plus the
// customer, service, and preference rows it references.
type RequestDetail struct {
	AppointmentRequest
	Customer    *Customer        `json:"customer"`
	Service     *Service         `json:"service"`
	Preferences []TimePreference `json:"preferred_times"`
}

// SubmitRequest is the public booking payload.
type SubmitRequest struct {
	Customer       SubmitCustomer     `json:"customer"`
	ServiceID      int64              `json:"service_id"`
	PreferredTimes []SubmitPreference `json:"preferred_times"`
	Notes          string             `json:"notes"`
}

type SubmitCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type SubmitPreference struct {
	Datetime time.Time `json:"datetime"`
	Priority int       `json:"priority"`
}

type ApproveRequest struct {
	PreferenceID int64  `json:"preference_id"`
	AdminNotes   string `json:"admin_notes"`
}

type RescheduleRequest struct {
	SuggestedDatetime time.Time `json:"suggested_datetime"`
	AdminNotes        string    `json:"admin_notes"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (r *SubmitRequest) Normalize() {
	r.Customer.Name = strings.TrimSpace(r.Customer.Name)
	r.Customer.Email = strings.ToLower(strings.TrimSpace(r.Customer.Email))
	r.Customer.Phone = strings.TrimSpace(r.Customer.Phone)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *SubmitRequest) Validate() error {
	if r.Customer.Name == "" {
		return fmt.Errorf("customer name is required")
	}
	if r.Customer.Email == "" {
		return fmt.Errorf("customer email is required")
	}
	if !isValidEmail(r.Customer.Email) {
		return fmt.Errorf("invalid email format")
	}
	if r.Customer.Phone == "" {
		return fmt.Errorf("customer phone is required")
	}
	if !isValidPhone(r.Customer.Phone) {
		return fmt.Errorf("invalid phone format")
	}
	if r.ServiceID <= 0 {
		return fmt.Errorf("service_id is required")
	}
	if len(r.PreferredTimes) < MinPreferences || len(r.PreferredTimes) > MaxPreferences {
		return fmt.Errorf("between %d and %d preferred times are required", MinPreferences, MaxPreferences)
	}
	seen := map[int]bool{}
	for _, p := range r.PreferredTimes {
		if p.Priority < 1 || p.Priority > MaxPreferences {
			return fmt.Errorf("priority must be between 1 and %d", MaxPreferences)
		}
		if seen[p.Priority] {
			return fmt.Errorf("duplicate priority %d", p.Priority)
		}
		seen[p.Priority] = true
		if p.Datetime.IsZero() {
			return fmt.Errorf("preferred time is required")
		}
	}
	return nil
}

var phoneRegex = regexp.MustCompile(`^[\+]?[\d\s\-\(\)]+$`)

func isValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone) && len(phone) >= 7
}
