package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"

	"github.com/salonmarlowe/bookings/internal/domain"
	"github.com/salonmarlowe/bookings/internal/http/handlers"
	mw "github.com/salonmarlowe/bookings/internal/http/middleware"
	"github.com/salonmarlowe/bookings/internal/service"
	"github.com/salonmarlowe/bookings/pkg/config"
	"github.com/salonmarlowe/bookings/pkg/events"
)

// ---------- Mocks ----------

type mockAccountRepo struct {
	accounts map[int64]*domain.Account
	byEmail  map[string]int64
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		accounts: make(map[int64]*domain.Account),
		byEmail:  make(map[string]int64),
	}
}

func (m *mockAccountRepo) add(a *domain.Account) {
	m.accounts[a.ID] = a
	m.byEmail[a.Email] = a.ID
}

func (m *mockAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	acct := *m.accounts[id]
	return &acct, nil
}

func (m *mockAccountRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	acct := *a
	return &acct, nil
}

func (m *mockAccountRepo) RecordFailedAttempt(_ context.Context, id int64, threshold int, lockUntil time.Time) (*domain.Account, error) {
	a := m.accounts[id]
	a.FailedAttempts++
	if a.FailedAttempts >= threshold {
		until := lockUntil
		a.LockUntil = &until
	}
	acct := *a
	return &acct, nil
}

func (m *mockAccountRepo) ClearLockout(_ context.Context, id int64) error {
	a := m.accounts[id]
	a.FailedAttempts = 0
	a.LockUntil = nil
	now := time.Now()
	a.LastLoginAt = &now
	return nil
}

func (m *mockAccountRepo) ResetLock(_ context.Context, id int64) error {
	a := m.accounts[id]
	a.FailedAttempts = 0
	a.LockUntil = nil
	return nil
}

func (m *mockAccountRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.accounts[id].PasswordHash = passwordHash
	return nil
}

type mockServiceRepo struct {
	services map[int64]*domain.Service
}

func newMockServiceRepo() *mockServiceRepo {
	return &mockServiceRepo{services: map[int64]*domain.Service{
		1: {ID: 1, Name: "Cut & Finish", DurationMinutes: 45, Price: "55.00", MaxConcurrent: 2, IsActive: true},
	}}
}

func (m *mockServiceRepo) FindByID(_ context.Context, id int64) (*domain.Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return nil, nil
	}
	c := *svc
	return &c, nil
}

func (m *mockServiceRepo) ListActive(_ context.Context) ([]domain.Service, error) {
	var out []domain.Service
	for _, svc := range m.services {
		if svc.IsActive {
			out = append(out, *svc)
		}
	}
	return out, nil
}

type mockRequestRepo struct {
	nextID  int64
	details map[int64]*domain.RequestDetail
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{nextID: 1, details: make(map[int64]*domain.RequestDetail)}
}

func (m *mockRequestRepo) CreateWithPreferences(_ context.Context, sub *domain.SubmitRequest) (*domain.RequestDetail, error) {
	id := m.nextID
	m.nextID++

	prefs := make([]domain.TimePreference, 0, len(sub.PreferredTimes))
	for i, p := range sub.PreferredTimes {
		prefs = append(prefs, domain.TimePreference{
			ID:          id*10 + int64(i),
			RequestID:   id,
			RequestedAt: p.Datetime,
			Priority:    p.Priority,
		})
	}

	detail := &domain.RequestDetail{
		AppointmentRequest: domain.AppointmentRequest{
			ID:            id,
			ManageToken:   fmt.Sprintf("token-%d", id),
			CustomerID:    id,
			ServiceID:     sub.ServiceID,
			Status:        domain.RequestPending,
			CustomerNotes: sub.Notes,
		},
		Customer: &domain.Customer{
			ID:    id,
			Name:  sub.Customer.Name,
			Email: sub.Customer.Email,
			Phone: sub.Customer.Phone,
		},
		Service:     &domain.Service{ID: sub.ServiceID, Name: "Cut & Finish", DurationMinutes: 45},
		Preferences: prefs,
	}
	m.details[id] = detail
	return detail, nil
}

func (m *mockRequestRepo) GetDetail(_ context.Context, id int64) (*domain.RequestDetail, error) {
	d, ok := m.details[id]
	if !ok {
		return nil, nil
	}
	detail := *d
	return &detail, nil
}

func (m *mockRequestRepo) List(_ context.Context, status *domain.RequestStatus, limit, offset int) ([]domain.RequestDetail, error) {
	var out []domain.RequestDetail
	for _, d := range m.details {
		if status != nil && d.Status != *status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockRequestRepo) Approve(_ context.Context, requestID, preferenceID int64, adminNotes string) (*domain.Appointment, error) {
	d, ok := m.details[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if d.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}
	var chosen *domain.TimePreference
	for i := range d.Preferences {
		if d.Preferences[i].ID == preferenceID {
			chosen = &d.Preferences[i]
		}
	}
	if chosen == nil {
		return nil, domain.ErrInvalidPreference
	}
	d.Status = domain.RequestConfirmed
	d.AdminNotes = adminNotes
	chosen.Selected = true
	return &domain.Appointment{
		ID:           requestID,
		RequestID:    requestID,
		PreferenceID: preferenceID,
		ScheduledAt:  chosen.RequestedAt,
		Status:       domain.AppointmentStatusScheduled,
	}, nil
}

func (m *mockRequestRepo) Reschedule(_ context.Context, requestID int64, suggestedAt time.Time, adminNotes string) (*domain.AppointmentRequest, error) {
	d, ok := m.details[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if d.Status != domain.RequestPending {
		return nil, domain.ErrRequestNotPending
	}
	d.Status = domain.RequestRescheduled
	d.SuggestedAt = &suggestedAt
	d.AdminNotes = adminNotes
	return &d.AppointmentRequest, nil
}

func (m *mockRequestRepo) Cancel(_ context.Context, requestID int64, reason string) (*domain.AppointmentRequest, error) {
	d, ok := m.details[requestID]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if d.Status != domain.RequestPending && d.Status != domain.RequestRescheduled {
		return nil, domain.ErrRequestNotPending
	}
	d.Status = domain.RequestCancelled
	return &d.AppointmentRequest, nil
}

type mockAppointmentRepo struct{}

func (mockAppointmentRepo) List(context.Context, *time.Time, *time.Time, int, int) ([]domain.Appointment, error) {
	return nil, nil
}

type mockExportRepo struct{}

func (mockExportRepo) Export(context.Context) (map[string][]map[string]any, error) {
	return map[string][]map[string]any{"services": {}}, nil
}

type nopMailer struct{}

func (nopMailer) SendRequestReceived(string, string, string) error { return nil }

func (nopMailer) SendRequestConfirmed(string, string, string, time.Time) error { return nil }

func (nopMailer) SendRequestRescheduled(string, string, string, time.Time) error { return nil }

// ---------- Test Setup ----------

const (
	adminPassword = "open-sesame-123"
	viewerEmail   = "viewer@salonmarlowe.com"
	adminEmail    = "admin@salonmarlowe.com"
)

func setupTestServer(t *testing.T) (*httptest.Server, *mockRequestRepo) {
	t.Helper()

	hash, err := argon2id.CreateHash(adminPassword, argon2id.DefaultParams)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	accounts := newMockAccountRepo()
	accounts.add(&domain.Account{
		ID: 1, Email: adminEmail, PasswordHash: hash,
		Name: "Marlowe Admin", Role: domain.RoleAdmin, IsActive: true,
	})
	accounts.add(&domain.Account{
		ID: 2, Email: viewerEmail, PasswordHash: hash,
		Name: "Front Desk", Role: "receptionist", IsActive: true,
	})

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:        "test-secret",
			TokenTTL:         time.Hour,
			RememberMeTTL:    30 * 24 * time.Hour,
			MaxLoginAttempts: 5,
			LockoutDuration:  30 * time.Minute,
		},
	}

	requests := newMockRequestRepo()
	authService := service.NewAuthService(accounts, cfg)
	bookingService := service.NewBookingService(requests, newMockServiceRepo(), nopMailer{}, events.NopPublisher{})
	adminService := service.NewAdminService(requests, mockAppointmentRepo{}, mockExportRepo{}, nopMailer{}, events.NopPublisher{})

	h := handlers.New(authService, bookingService, adminService, nil)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/services", h.ListServices)
		r.Post("/auth/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(authService))
			r.Get("/auth/verify", h.VerifyToken)
			r.Post("/auth/change-password", h.ChangePassword)
		})
		r.Post("/requests", h.SubmitRequest)
		r.Get("/requests/{id}", h.GetRequest)
		r.Route("/admin", func(r chi.Router) {
			r.Use(mw.RequireAuth(authService))
			r.Use(mw.RequireRole(domain.RoleAdmin, domain.RoleSuperAdmin))
			r.Get("/requests", h.ListRequests)
			r.Get("/requests/{id}", h.GetAdminRequest)
			r.Put("/requests/{id}/approve", h.ApproveRequest)
			r.Put("/requests/{id}/reschedule", h.RescheduleRequest)
			r.Delete("/requests/{id}", h.CancelRequest)
			r.Get("/appointments", h.ListAppointments)
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, requests
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func doJSON(t *testing.T, method, url, token string, body any, wantStatus int) envelope {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d (error=%q code=%q)",
			method, url, wantStatus, resp.StatusCode, env.Error, env.Code)
	}
	return env
}

func login(t *testing.T, serverURL, email, password string) string {
	t.Helper()

	env := doJSON(t, http.MethodPost, serverURL+"/api/auth/login", "",
		map[string]any{"email": email, "password": password}, http.StatusOK)

	var result domain.LoginResponse
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a token")
	}
	return result.Token
}

func submitBooking(t *testing.T, serverURL string) domain.RequestDetail {
	t.Helper()

	env := doJSON(t, http.MethodPost, serverURL+"/api/requests", "", map[string]any{
		"customer": map[string]string{
			"name":  "Ada Lovelace",
			"email": "ada@example.com",
			"phone": "+1 555 0100",
		},
		"service_id": 1,
		"preferred_times": []map[string]any{
			{"datetime": time.Now().Add(48 * time.Hour).Format(time.RFC3339), "priority": 1},
			{"datetime": time.Now().Add(72 * time.Hour).Format(time.RFC3339), "priority": 2},
		},
		"notes": "first visit",
	}, http.StatusCreated)

	var detail domain.RequestDetail
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("failed to decode request detail: %v", err)
	}
	return detail
}

// ---------- Tests ----------

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t)

	env := doJSON(t, http.MethodGet, server.URL+"/api/health", "", nil, http.StatusOK)
	if !env.Success {
		t.Fatal("expected success envelope")
	}
}

func TestLogin_Endpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	token := login(t, server.URL, adminEmail, adminPassword)

	env := doJSON(t, http.MethodGet, server.URL+"/api/auth/verify", token, nil, http.StatusOK)
	var verify struct {
		User      domain.AccountInfo `json:"user"`
		ExpiresAt *time.Time         `json:"expires_at"`
	}
	if err := json.Unmarshal(env.Data, &verify); err != nil {
		t.Fatalf("failed to decode verify response: %v", err)
	}
	if verify.User.Email != adminEmail {
		t.Fatalf("unexpected user: %+v", verify.User)
	}
	if verify.ExpiresAt == nil || !verify.ExpiresAt.After(time.Now()) {
		t.Fatal("expected a future expiry")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	server, _ := setupTestServer(t)

	env := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]any{"email": adminEmail, "password": "wrong"}, http.StatusUnauthorized)
	if env.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %q", env.Code)
	}
}

func TestLogin_LockoutReturns423(t *testing.T) {
	server, _ := setupTestServer(t)

	for i := 0; i < 4; i++ {
		doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
			map[string]any{"email": adminEmail, "password": "wrong"}, http.StatusUnauthorized)
	}
	env := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]any{"email": adminEmail, "password": "wrong"}, http.StatusLocked)
	if env.Code != "ACCOUNT_LOCKED" {
		t.Fatalf("expected ACCOUNT_LOCKED, got %q", env.Code)
	}

	// Correct password is also rejected while the lock holds.
	doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]any{"email": adminEmail, "password": adminPassword}, http.StatusLocked)
}

func TestSubmitAndFetch_PublicView(t *testing.T) {
	server, _ := setupTestServer(t)

	detail := submitBooking(t, server.URL)
	if detail.ID == 0 || detail.ManageToken == "" {
		t.Fatal("expected request ID and manage token on creation")
	}
	if detail.Status != domain.RequestPending {
		t.Fatalf("expected pending, got %s", detail.Status)
	}

	env := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/requests/%d", server.URL, detail.ID), "", nil, http.StatusOK)

	var fetched domain.RequestDetail
	if err := json.Unmarshal(env.Data, &fetched); err != nil {
		t.Fatalf("failed to decode detail: %v", err)
	}
	if fetched.ManageToken != "" {
		t.Fatal("public view must not expose the manage token")
	}
	if fetched.AdminNotes != "" {
		t.Fatal("public view must not expose admin notes")
	}
	if len(fetched.Preferences) != 2 {
		t.Fatalf("expected 2 preferences, got %d", len(fetched.Preferences))
	}
}

func TestSubmit_UnknownService(t *testing.T) {
	server, _ := setupTestServer(t)

	env := doJSON(t, http.MethodPost, server.URL+"/api/requests", "", map[string]any{
		"customer": map[string]string{
			"name": "Ada Lovelace", "email": "ada@example.com", "phone": "+1 555 0100",
		},
		"service_id": 99,
		"preferred_times": []map[string]any{
			{"datetime": time.Now().Add(48 * time.Hour).Format(time.RFC3339), "priority": 1},
		},
	}, http.StatusNotFound)
	if env.Code != "INVALID_SERVICE" {
		t.Fatalf("expected INVALID_SERVICE, got %q", env.Code)
	}
}

func TestAdmin_RequiresAuthAndRole(t *testing.T) {
	server, _ := setupTestServer(t)

	env := doJSON(t, http.MethodGet, server.URL+"/api/admin/requests", "", nil, http.StatusUnauthorized)
	if env.Code != "TOKEN_REQUIRED" {
		t.Fatalf("expected TOKEN_REQUIRED, got %q", env.Code)
	}

	doJSON(t, http.MethodGet, server.URL+"/api/admin/requests", "garbage-token", nil, http.StatusUnauthorized)

	viewerToken := login(t, server.URL, viewerEmail, adminPassword)
	env = doJSON(t, http.MethodGet, server.URL+"/api/admin/requests", viewerToken, nil, http.StatusForbidden)
	if env.Code != "INSUFFICIENT_PERMISSIONS" {
		t.Fatalf("expected INSUFFICIENT_PERMISSIONS, got %q", env.Code)
	}
}

func TestAdmin_ApproveFlow(t *testing.T) {
	server, requests := setupTestServer(t)

	detail := submitBooking(t, server.URL)
	token := login(t, server.URL, adminEmail, adminPassword)

	approveURL := fmt.Sprintf("%s/api/admin/requests/%d/approve", server.URL, detail.ID)
	env := doJSON(t, http.MethodPut, approveURL, token,
		map[string]any{"preference_id": detail.Preferences[0].ID, "admin_notes": "see you then"},
		http.StatusOK)

	var appt domain.Appointment
	if err := json.Unmarshal(env.Data, &appt); err != nil {
		t.Fatalf("failed to decode appointment: %v", err)
	}
	if appt.Status != domain.AppointmentStatusScheduled {
		t.Fatalf("expected scheduled, got %s", appt.Status)
	}
	if requests.details[detail.ID].Status != domain.RequestConfirmed {
		t.Fatalf("expected confirmed request, got %s", requests.details[detail.ID].Status)
	}

	// Approving twice conflicts.
	env = doJSON(t, http.MethodPut, approveURL, token,
		map[string]any{"preference_id": detail.Preferences[0].ID}, http.StatusConflict)
	if env.Code != "STATE_CONFLICT" {
		t.Fatalf("expected STATE_CONFLICT, got %q", env.Code)
	}

	// Unknown request 404s.
	doJSON(t, http.MethodPut, server.URL+"/api/admin/requests/999/approve", token,
		map[string]any{"preference_id": 1}, http.StatusNotFound)

	// Missing preference_id is a validation error.
	doJSON(t, http.MethodPut, server.URL+"/api/admin/requests/999/approve", token,
		map[string]any{}, http.StatusBadRequest)
}

func TestAdmin_RescheduleAndCancel(t *testing.T) {
	server, requests := setupTestServer(t)

	detail := submitBooking(t, server.URL)
	token := login(t, server.URL, adminEmail, adminPassword)

	rescheduleURL := fmt.Sprintf("%s/api/admin/requests/%d/reschedule", server.URL, detail.ID)
	doJSON(t, http.MethodPut, rescheduleURL, token, map[string]any{}, http.StatusBadRequest)

	doJSON(t, http.MethodPut, rescheduleURL, token, map[string]any{
		"suggested_datetime": time.Now().Add(96 * time.Hour).Format(time.RFC3339),
		"admin_notes":        "stylist away that week",
	}, http.StatusOK)
	if requests.details[detail.ID].Status != domain.RequestRescheduled {
		t.Fatalf("expected rescheduled, got %s", requests.details[detail.ID].Status)
	}

	cancelURL := fmt.Sprintf("%s/api/admin/requests/%d", server.URL, detail.ID)
	doJSON(t, http.MethodDelete, cancelURL, token, nil, http.StatusOK)
	if requests.details[detail.ID].Status != domain.RequestCancelled {
		t.Fatalf("expected cancelled, got %s", requests.details[detail.ID].Status)
	}

	env := doJSON(t, http.MethodDelete, cancelURL, token, nil, http.StatusConflict)
	if env.Code != "STATE_CONFLICT" {
		t.Fatalf("expected STATE_CONFLICT, got %q", env.Code)
	}
}

func TestAdmin_ListRequestsFilter(t *testing.T) {
	server, _ := setupTestServer(t)

	submitBooking(t, server.URL)
	token := login(t, server.URL, adminEmail, adminPassword)

	doJSON(t, http.MethodGet, server.URL+"/api/admin/requests?status=bogus", token, nil, http.StatusBadRequest)

	env := doJSON(t, http.MethodGet, server.URL+"/api/admin/requests?status=pending", token, nil, http.StatusOK)
	var details []domain.RequestDetail
	if err := json.Unmarshal(env.Data, &details); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(details))
	}

	env = doJSON(t, http.MethodGet, server.URL+"/api/admin/requests?status=confirmed", token, nil, http.StatusOK)
	if err := json.Unmarshal(env.Data, &details); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(details) != 0 {
		t.Fatalf("expected empty list, got %d", len(details))
	}
}
