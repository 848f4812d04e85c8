package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/mailer"
	"github.com/salonmarlowe/bookings/internal/repo/postgres"
	"github.com/salonmarlowe/bookings/pkg/events"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

type AdminService interface {
	ListRequests(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.RequestDetail, error)
	GetRequest(ctx context.Context, id int64) (*domain.RequestDetail, error)
	Approve(ctx context.Context, requestID, preferenceID int64, adminNotes string) (*domain.Appointment, error)
	Reschedule(ctx context.Context, requestID int64, suggestedAt time.Time, adminNotes string) (*domain.AppointmentRequest, error)
	Cancel(ctx context.Context, requestID int64, reason string) (*domain.AppointmentRequest, error)
	ListAppointments(ctx context.Context, from, to *time.Time, limit, offset int) ([]domain.Appointment, error)
	Export(ctx context.Context) (map[string][]map[string]any, error)
}

type adminService struct {
	requests     postgres.RequestRepository
	appointments postgres.AppointmentRepository
	export       postgres.ExportRepository
	mailer       mailer.Service
	bus          events.Publisher
}

func NewAdminService(
	requests postgres.RequestRepository,
	appointments postgres.AppointmentRepository,
	export postgres.ExportRepository,
	mailer mailer.Service,
	bus events.Publisher,
) AdminService {
	return &adminService{
		requests:     requests,
		appointments: appointments,
		export:       export,
		mailer:       mailer,
		bus:          bus,
	}
}

func (s *adminService) ListRequests(ctx context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.RequestDetail, error) {
	details, err := s.requests.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return details, nil
}

func (s *adminService) GetRequest(ctx context.Context, id int64) (*domain.RequestDetail, error) {
	detail, err := s.requests.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if detail == nil {
		return nil, domain.ErrRequestNotFound
	}
	return detail, nil
}

// Approve converts a pending request plus one of its preferences into a
// scheduled appointment. The repository runs the whole thing atomically;
// this layer adds the side effects (event, email) only after commit.
func (s *adminService) Approve(ctx context.Context, requestID, preferenceID int64, adminNotes string) (*domain.Appointment, error) {
	appt, err := s.requests.Approve(ctx, requestID, preferenceID, adminNotes)
	if err != nil {
		if isStateError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to approve request: %w", err)
	}

	logger.InfoContext(ctx, "Request approved",
		"request_id", requestID, "appointment_id", appt.ID, "scheduled_at", appt.ScheduledAt)

	if err := s.bus.Publish(ctx, events.SubjectRequestConfirmed, appt); err != nil {
		logger.WarnContext(ctx, "Failed to publish request.confirmed", "error", err, "request_id", requestID)
	}
	s.notifyCustomer(ctx, requestID, func(c *domain.Customer, svcName string) error {
		return s.mailer.SendRequestConfirmed(c.Email, c.Name, svcName, appt.ScheduledAt)
	})

	return appt, nil
}

func (s *adminService) Reschedule(ctx context.Context, requestID int64, suggestedAt time.Time, adminNotes string) (*domain.AppointmentRequest, error) {
	if suggestedAt.IsZero() {
		return nil, fmt.Errorf("%w: suggested_datetime is required", domain.ErrValidation)
	}

	ar, err := s.requests.Reschedule(ctx, requestID, suggestedAt, adminNotes)
	if err != nil {
		if isStateError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reschedule request: %w", err)
	}

	if err := s.bus.Publish(ctx, events.SubjectRequestRescheduled, ar); err != nil {
		logger.WarnContext(ctx, "Failed to publish request.rescheduled", "error", err, "request_id", requestID)
	}
	s.notifyCustomer(ctx, requestID, func(c *domain.Customer, svcName string) error {
		return s.mailer.SendRequestRescheduled(c.Email, c.Name, svcName, suggestedAt)
	})

	return ar, nil
}

func (s *adminService) Cancel(ctx context.Context, requestID int64, reason string) (*domain.AppointmentRequest, error) {
	ar, err := s.requests.Cancel(ctx, requestID, reason)
	if err != nil {
		if isStateError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to cancel request: %w", err)
	}

	if err := s.bus.Publish(ctx, events.SubjectRequestCancelled, ar); err != nil {
		logger.WarnContext(ctx, "Failed to publish request.cancelled", "error", err, "request_id", requestID)
	}

	return ar, nil
}

func (s *adminService) ListAppointments(ctx context.Context, from, to *time.Time, limit, offset int) ([]domain.Appointment, error) {
	appointments, err := s.appointments.List(ctx, from, to, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *adminService) Export(ctx context.Context) (map[string][]map[string]any, error) {
	dump, err := s.export.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export tables: %w", err)
	}
	return dump, nil
}

// notifyCustomer re-reads the request detail for contact info and sends a
// best-effort email. Failures are logged, never surfaced.
func (s *adminService) notifyCustomer(ctx context.Context, requestID int64, send func(*domain.Customer, string) error) {
	detail, err := s.requests.GetDetail(ctx, requestID)
	if err != nil || detail == nil || detail.Customer == nil || detail.Service == nil {
		logger.WarnContext(ctx, "Could not load request for notification", "error", err, "request_id", requestID)
		return
	}
	if err := send(detail.Customer, detail.Service.Name); err != nil {
		logger.WarnContext(ctx, "Failed to send notification email", "error", err, "request_id", requestID)
	}
}

func isStateError(err error) bool {
	return errors.Is(err, domain.ErrRequestNotFound) ||
		errors.Is(err, domain.ErrRequestNotPending) ||
		errors.Is(err, domain.ErrInvalidPreference)
}
