package service

import (
	"context"
	"fmt"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/mailer"
	"github.com/salonmarlowe/bookings/internal/repo/postgres"
	"github.com/salonmarlowe/bookings/pkg/events"
	"github.com/salonmarlowe/bookings/pkg/logger"
)

type BookingService interface {
	Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.RequestDetail, error)
	GetRequest(ctx context.Context, id int64) (*domain.RequestDetail, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}

type bookingService struct {
	requests postgres.RequestRepository
	services postgres.ServiceRepository
	mailer   mailer.Service
	bus      events.Publisher
}

func NewBookingService(
	requests postgres.RequestRepository,
	services postgres.ServiceRepository,
	mailer mailer.Service,
	bus events.Publisher,
) BookingService {
	return &bookingService{
		requests: requests,
		services: services,
		mailer:   mailer,
		bus:      bus,
	}
}

func (s *bookingService) Submit(ctx context.Context, req *domain.SubmitRequest) (*domain.RequestDetail, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	svc, err := s.services.FindByID(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up service: %w", err)
	}
	if svc == nil || !svc.IsActive {
		return nil, domain.ErrInvalidService
	}

	detail, err := s.requests.CreateWithPreferences(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "Booking submission failed", "error", err, "service_id", req.ServiceID)
		return nil, domain.ErrSubmissionFailed
	}
	detail.Service = svc

	if err := s.bus.Publish(ctx, events.SubjectRequestCreated, detail); err != nil {
		logger.WarnContext(ctx, "Failed to publish request.created", "error", err, "request_id", detail.ID)
	}
	if err := s.mailer.SendRequestReceived(detail.Customer.Email, detail.Customer.Name, svc.Name); err != nil {
		logger.WarnContext(ctx, "Failed to send confirmation email", "error", err, "request_id", detail.ID)
	}

	return detail, nil
}

func (s *bookingService) GetRequest(ctx context.Context, id int64) (*domain.RequestDetail, error) {
	detail, err := s.requests.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if detail == nil {
		return nil, domain.ErrRequestNotFound
	}
	return detail, nil
}

func (s *bookingService) ListServices(ctx context.Context) ([]domain.Service, error) {
	services, err := s.services.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}
