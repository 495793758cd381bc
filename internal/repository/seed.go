package repository

import (
	"time"

	"homecare/portal/internal/models"
)

func seed(s *MemoryStore) {
	s.users[DevUserID] = models.User{
		ID:    DevUserID,
		Email: "dev@example.com",
		Name:  "Margaret Thompson",
		Role:  models.RoleClient,
	}
	for _, u := range []models.User{
		{ID: "dev-admin-1", Email: "admin@example.com", Name: "Portal Admin", Role: models.RoleAdmin},
		{ID: "dev-employee-1", Email: "sarah.johnson@example.com", Name: "Sarah Johnson", Role: models.RoleEmployee},
		{ID: "dev-contractor-1", Email: "james.wilson@example.com", Name: "James Wilson", Role: models.RoleContractor},
	} {
		s.users[u.ID] = u
	}

	s.carePlans["cp-001"] = models.CarePlan{
		ID:          "cp-001",
		ClientID:    DevUserID,
		Title:       "Comprehensive Home Care Support",
		Description: "Personalized care plan with professional caregivers, meal preparation, housekeeping, and medical monitoring.",
		Status:      models.CarePlanActive,
		Progress:    75,
		NextReview:  "2025-09-20",
		Milestones: []models.Milestone{
			{ID: 1, Title: "Initial Assessment", Completed: true, Date: "2025-08-01"},
			{ID: 2, Title: "Caregiver Matching", Completed: true, Date: "2025-08-15"},
			{ID: 3, Title: "Service Implementation", Completed: true, Date: "2025-08-20"},
			{ID: 4, Title: "First Month Review", Completed: false, Date: "2025-09-20"},
			{ID: 5, Title: "Quarterly Assessment", Completed: false, Date: "2025-11-20"},
		},
		Services: []models.CareService{
			{Name: "Personal Care", Frequency: "Daily", Status: models.CarePlanActive},
			{Name: "Meal Preparation", Frequency: "Daily", Status: models.CarePlanActive},
			{Name: "Housekeeping", Frequency: "Weekly", Status: models.CarePlanActive},
			{Name: "Medical Monitoring", Frequency: "Daily", Status: models.CarePlanActive},
		},
	}

	day := func(v string) time.Time {
		t, _ := time.Parse("2006-01-02", v)
		return t
	}
	s.requests[DevUserID] = []models.ServiceRequest{
		{
			ID: "SR-001", ClientID: DevUserID, Title: "Housekeeping Service",
			Description: "Need weekly housekeeping service for 2-bedroom apartment",
			Category:    "Housekeeping", Priority: "medium", Status: models.ServiceRequestPending,
			RequestedDate: day("2025-01-15"), AssignedTo: "Sarah Johnson", CreatedAt: day("2025-01-15"),
		},
		{
			ID: "SR-002", ClientID: DevUserID, Title: "Meal Preparation",
			Description: "Request for daily meal preparation and nutrition planning",
			Category:    "Nutrition", Priority: "high", Status: models.ServiceRequestActive,
			RequestedDate: day("2025-01-10"), AssignedTo: "Maria Rodriguez", CreatedAt: day("2025-01-10"),
		},
		{
			ID: "SR-003", ClientID: DevUserID, Title: "Transportation to Medical Appointments",
			Description: "Need reliable transportation for weekly doctor visits",
			Category:    "Transportation", Priority: "high", Status: models.ServiceRequestCompleted,
			RequestedDate: day("2025-01-05"), AssignedTo: "James Wilson", CreatedAt: day("2025-01-05"),
		},
	}

	s.profiles[DevUserID] = models.Profile{
		UserID:    DevUserID,
		FirstName: "Margaret",
		LastName:  "Thompson",
		Email:     "margaret.thompson@email.com",
		Phone:     "+1 (555) 123-4567",
		Fields: map[string]any{
			"communication":       "email",
			"primaryLanguage":     "English",
			"mobility":            "Uses walker",
			"dietaryRestrictions": []any{"Gluten-free", "Low-sodium"},
		},
	}
}
