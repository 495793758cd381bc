package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/ids"
	"homecare/portal/internal/models"
	"homecare/portal/internal/repository"
)

type CarePlanSummary struct {
	ID     string                `json:"id"`
	Title  string                `json:"title"`
	Status models.CarePlanStatus `json:"status"`
}

type CreateServiceRequestInput struct {
	ClientID      string `json:"clientId"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Priority      string `json:"priority"`
	RequestedDate string `json:"requestedDate"`
}

type ScheduleInterviewInput struct {
	ClientID    string `json:"clientId"`
	CaregiverID string `json:"caregiverId"`
	Datetime    string `json:"datetime"`
}

type PortalService struct {
	store repository.PortalStore
	audit audit.Recorder
	log   zerolog.Logger
	now   func() time.Time
}

func NewPortalService(store repository.PortalStore, recorder audit.Recorder, log zerolog.Logger) *PortalService {
	return &PortalService{
		store: store,
		audit: recorder,
		log:   log,
		now:   time.Now,
	}
}

func (s *PortalService) WithClock(now func() time.Time) *PortalService {
	s.now = now
	return s
}

func (s *PortalService) ListCarePlans(ctx context.Context, clientID string) ([]CarePlanSummary, error) {
	plans, err := s.store.ListCarePlans(ctx, clientID)
	if err != nil {
		return nil, err
	}
	items := make([]CarePlanSummary, 0, len(plans))
	for _, p := range plans {
		items = append(items, CarePlanSummary{ID: p.ID, Title: p.Title, Status: p.Status})
	}
	return items, nil
}

func (s *PortalService) GetCarePlan(ctx context.Context, id string) (models.CarePlan, error) {
	plan, err := s.store.GetCarePlan(ctx, id)
	if errors.Is(err, repository.ErrCarePlanNotFound) {
		return models.CarePlan{}, ErrNotFound
	}
	return plan, err
}

func (s *PortalService) CreateServiceRequest(ctx context.Context, input CreateServiceRequestInput) (models.ServiceRequest, error) {
	input.ClientID = strings.TrimSpace(input.ClientID)
	input.Description = strings.TrimSpace(input.Description)
	if input.ClientID == "" || input.Description == "" {
		return models.ServiceRequest{}, fmt.Errorf("%w: clientId and description required", ErrInvalidInput)
	}

	now := s.now().UTC()
	requested := now
	if input.RequestedDate != "" {
		t, err := parseDate(input.RequestedDate)
		if err != nil {
			return models.ServiceRequest{}, fmt.Errorf("%w: requestedDate: %v", ErrInvalidInput, err)
		}
		requested = t
	}

	priority := strings.ToLower(input.Priority)
	switch priority {
	case "low", "medium", "high":
	case "":
		priority = "medium"
	default:
		return models.ServiceRequest{}, fmt.Errorf("%w: priority %q", ErrInvalidInput, input.Priority)
	}

	title := input.Title
	if title == "" {
		title = input.Category
	}
	if title == "" {
		title = "Service Request"
	}

	req := models.ServiceRequest{
		ID:            ids.New(),
		ClientID:      input.ClientID,
		Title:         title,
		Description:   input.Description,
		Category:      input.Category,
		Priority:      priority,
		Status:        models.ServiceRequestPending,
		RequestedDate: requested,
		CreatedAt:     now,
	}
	if err := s.store.CreateServiceRequest(ctx, req); err != nil {
		return models.ServiceRequest{}, err
	}

	audit.TrackUserAction(ctx, s.audit, "service_request_created", req.ClientID, map[string]any{"request_id": req.ID})
	return req, nil
}

func (s *PortalService) ListServiceRequests(ctx context.Context, clientID string) ([]models.ServiceRequest, error) {
	return s.store.ListServiceRequests(ctx, clientID)
}

func (s *PortalService) ScheduleInterview(ctx context.Context, input ScheduleInterviewInput) (models.Interview, error) {
	if input.ClientID == "" || input.CaregiverID == "" {
		return models.Interview{}, fmt.Errorf("%w: clientId and caregiverId required", ErrInvalidInput)
	}
	at, err := time.Parse(time.RFC3339, input.Datetime)
	if err != nil {
		return models.Interview{}, fmt.Errorf("%w: datetime: %v", ErrInvalidInput, err)
	}

	interview := models.Interview{
		EventID:     ids.New(),
		ClientID:    input.ClientID,
		CaregiverID: input.CaregiverID,
		Datetime:    at.UTC(),
	}
	if err := s.store.CreateInterview(ctx, interview); err != nil {
		return models.Interview{}, err
	}

	audit.TrackUserAction(ctx, s.audit, "interview_scheduled", input.ClientID, map[string]any{
		"event_id":     interview.EventID,
		"caregiver_id": input.CaregiverID,
	})
	return interview, nil
}

func (s *PortalService) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return models.Profile{}, ErrNotFound
	}
	return p, err
}

func (s *PortalService) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (models.Profile, error) {
	if userID == "" || len(fields) == 0 {
		return models.Profile{}, fmt.Errorf("%w: userId and fields required", ErrInvalidInput)
	}
	p, err := s.store.UpdateProfile(ctx, userID, fields)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return models.Profile{}, ErrNotFound
	}
	if err != nil {
		return models.Profile{}, err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	audit.TrackUserAction(ctx, s.audit, "profile_updated", userID, map[string]any{"fields": keys})
	return p, nil
}

func (s *PortalService) UpdateUserRole(ctx context.Context, actorID string, userID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidInput, role)
	}
	if err := s.store.UpdateUserRole(ctx, userID, role); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	audit.TrackUserAction(ctx, s.audit, "user_role_updated", actorID, map[string]any{
		"user_id": userID,
		"role":    string(role),
	})
	return nil
}

// BillingSummary reports the current month. Amounts come from the billing
// system once it is wired; until then every client owes nothing.
func (s *PortalService) BillingSummary(_ context.Context, _ string) models.BillingSummary {
	return models.BillingSummary{
		Period:   s.now().UTC().Format("2006-01"),
		Total:    0,
		Currency: "USD",
	}
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", v)
}
