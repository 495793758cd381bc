package repository

import (
	"context"
	"errors"

	"homecare/portal/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCarePlanNotFound = errors.New("care plan not found")
	ErrProfileNotFound  = errors.New("profile not found")
)

// PortalStore is the system of record the portal reads and writes. In
// development it is seeded mock data; in deployments it is Postgres standing
// in for the external CRM.
type PortalStore interface {
	GetUser(ctx context.Context, id string) (models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error

	ListCarePlans(ctx context.Context, clientID string) ([]models.CarePlan, error)
	GetCarePlan(ctx context.Context, id string) (models.CarePlan, error)

	CreateServiceRequest(ctx context.Context, req models.ServiceRequest) error
	ListServiceRequests(ctx context.Context, clientID string) ([]models.ServiceRequest, error)

	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, fields map[string]any) (models.Profile, error)

	CreateInterview(ctx context.Context, interview models.Interview) error
	SaveDocument(ctx context.Context, doc models.Document) error

	Ping(ctx context.Context) error
}
