package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare/portal/internal/models"
)

func TestSeededStoreHoldsDemoClient(t *testing.T) {
	s := NewSeededMemoryStore()
	ctx := context.Background()

	user, err := s.GetUser(ctx, DevUserID)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.Email)
	assert.Equal(t, models.RoleClient, user.Role)

	plans, err := s.ListCarePlans(ctx, DevUserID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Comprehensive Home Care Support", plans[0].Title)
	assert.Equal(t, 75, plans[0].Progress)
	assert.Len(t, plans[0].Milestones, 5)

	requests, err := s.ListServiceRequests(ctx, DevUserID)
	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.Equal(t, "SR-001", requests[0].ID, "newest first")
}

func TestMemoryStoreUnknownRecords(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, s.UpdateUserRole(ctx, "nobody", models.RoleAdmin), ErrUserNotFound)

	_, err = s.GetCarePlan(ctx, "cp-404")
	assert.ErrorIs(t, err, ErrCarePlanNotFound)

	_, err = s.UpdateProfile(ctx, "nobody", map[string]any{"phone": "1"})
	assert.ErrorIs(t, err, ErrProfileNotFound)

	plans, err := s.ListCarePlans(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, plans)
	assert.Empty(t, plans)
}

func TestUpdateUserRole(t *testing.T) {
	s := NewSeededMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpdateUserRole(ctx, DevUserID, models.RoleEmployee))
	user, err := s.GetUser(ctx, DevUserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployee, user.Role)
}

func TestUpdateProfileMergesFields(t *testing.T) {
	s := NewSeededMemoryStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	p, err := s.UpdateProfile(ctx, DevUserID, map[string]any{
		"phone":    "+1 (555) 000-0000",
		"mobility": "Independent",
		"pets":     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "+1 (555) 000-0000", p.Phone)
	assert.Equal(t, "Margaret", p.FirstName)
	assert.Equal(t, "Independent", p.Fields["mobility"])
	assert.Equal(t, true, p.Fields["pets"])
	assert.Equal(t, "English", p.Fields["primaryLanguage"])
	assert.Equal(t, fixed, p.UpdatedAt)

	// returned profiles are copies
	p.Fields["mobility"] = "changed"
	again, err := s.GetProfile(ctx, DevUserID)
	require.NoError(t, err)
	assert.Equal(t, "Independent", again.Fields["mobility"])
}

func TestCreateServiceRequestIsScopedToClient(t *testing.T) {
	s := NewSeededMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateServiceRequest(ctx, models.ServiceRequest{
		ID: "SR-XYZ", ClientID: "other-client", Title: "Companionship",
		Status: models.ServiceRequestPending, CreatedAt: time.Now(),
	}))

	mine, err := s.ListServiceRequests(ctx, DevUserID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	theirs, err := s.ListServiceRequests(ctx, "other-client")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "SR-XYZ", theirs[0].ID)
}
