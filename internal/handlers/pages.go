package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/portal/internal/models"
	"homecare/portal/internal/rbac"
)

type appointment struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Type  string `json:"type"`
}

var upcomingAppointments = []appointment{
	{ID: "APT-001", Title: "Care Plan Review", Date: "2025-01-22", Time: "10:00 AM", Type: "Virtual"},
	{ID: "APT-002", Title: "Physical Therapy", Date: "2025-01-25", Time: "2:00 PM", Type: "In-Person"},
}

func (h HandlerSet) HomePage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"page":      "home",
		"title":     "Home Care Portal",
		"signInUrl": rbac.SignInPath,
	})
}

// SignInPage describes the sign-in step the browser is on: the provider
// button, the MFA prompt, or code entry.
func (h HandlerSet) SignInPage(c *gin.Context) {
	step := c.Query("step")
	switch step {
	case "", "mfa", "mfa-verify":
	default:
		step = ""
	}
	fallback := h.defaultDashboard()
	c.JSON(http.StatusOK, gin.H{
		"page": "signin",
		"step": step,
		"next": rbac.SafeNext(c.Query("next"), fallback),
	})
}

func (h HandlerSet) ClientDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	clientID := subjectID(c)

	plans, err := h.portal.ListCarePlans(ctx, clientID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	requests, err := h.portal.ListServiceRequests(ctx, clientID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var active *models.CarePlan
	if len(plans) > 0 {
		plan, err := h.portal.GetCarePlan(ctx, plans[0].ID)
		if err == nil {
			active = &plan
		}
	}
	if len(requests) > 2 {
		requests = requests[:2]
	}

	c.JSON(http.StatusOK, gin.H{
		"page":                 "client-dashboard",
		"carePlan":             active,
		"recentRequests":       requests,
		"upcomingAppointments": upcomingAppointments,
	})
}

func (h HandlerSet) ClientCarePlanPage(c *gin.Context) {
	ctx := c.Request.Context()
	plans, err := h.portal.ListCarePlans(ctx, subjectID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := gin.H{"page": "care-plan", "carePlan": nil}
	if len(plans) > 0 {
		plan, err := h.portal.GetCarePlan(ctx, plans[0].ID)
		if err != nil {
			h.writeError(c, err)
			return
		}
		resp["carePlan"] = plan
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) ClientServiceRequestsPage(c *gin.Context) {
	requests, err := h.portal.ListServiceRequests(c.Request.Context(), subjectID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	counts := map[models.ServiceRequestStatus]int{}
	for _, r := range requests {
		counts[r.Status]++
	}
	c.JSON(http.StatusOK, gin.H{
		"page":     "service-requests",
		"requests": requests,
		"counts":   counts,
	})
}

func (h HandlerSet) ClientProfilePage(c *gin.Context) {
	profile, err := h.portal.GetProfile(c.Request.Context(), subjectID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": "profile", "profile": profile})
}

func (h HandlerSet) RoleDashboard(role models.Role) gin.HandlerFunc {
	page := string(role) + "-dashboard"
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"page": page,
			"role": role,
			"user": subjectID(c),
		})
	}
}

func (h HandlerSet) defaultDashboard() string {
	if h.cfg != nil && h.cfg.Gate.DefaultDashboard != "" {
		return h.cfg.Gate.DefaultDashboard
	}
	return "/client-dashboard"
}
