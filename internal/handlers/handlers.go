package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"homecare/portal/internal/audit"
	"homecare/portal/internal/config"
	"homecare/portal/internal/middleware"
	"homecare/portal/internal/models"
	"homecare/portal/internal/rbac"
	"homecare/portal/internal/service"
)

type Dependencies struct {
	Log       zerolog.Logger
	Config    *config.AppConfig
	Auth      *service.AuthService
	Portal    *service.PortalService
	Documents *service.DocumentService
	Recorder  audit.Recorder
	Routes    *rbac.RouteTable
	Probes    []HealthProbe
}

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	auth      *service.AuthService
	portal    *service.PortalService
	documents *service.DocumentService
	audit     audit.Recorder
	routes    *rbac.RouteTable
	probes    []HealthProbe
}

func NewHandlerSet(deps Dependencies) HandlerSet {
	routes := deps.Routes
	if routes == nil {
		routes = rbac.MustDefault()
	}
	return HandlerSet{
		log:       deps.Log,
		cfg:       deps.Config,
		auth:      deps.Auth,
		portal:    deps.Portal,
		documents: deps.Documents,
		audit:     deps.Recorder,
		routes:    routes,
		probes:    deps.Probes,
	}
}

// Register mounts pages at the root of router and the JSON API under /api.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/", h.HomePage)
	router.GET("/signin", h.SignInPage)

	for _, role := range []models.Role{models.RoleAdmin, models.RoleEmployee, models.RoleContractor} {
		if prefix, ok := h.routes.DashboardFor(role); ok {
			router.GET(prefix, h.RoleDashboard(role))
		}
	}
	if prefix, ok := h.routes.DashboardFor(models.RoleClient); ok {
		client := router.Group(prefix)
		client.GET("", h.ClientDashboard)
		client.GET("/care-plan", h.ClientCarePlanPage)
		client.GET("/service-requests", h.ClientServiceRequestsPage)
		client.GET("/profile", h.ClientProfilePage)
	}

	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/audit", h.RecordAudit)

	auth := api.Group("/auth")
	auth.POST("/begin", h.BeginAuth)
	auth.GET("/session", h.GetSession)
	auth.POST("/signout", h.SignOut)
	auth.POST("/mfa/begin", h.BeginMFA)
	auth.POST("/mfa/verify", h.VerifyMFA)

	api.POST("/users/role", middleware.RequireRoles(models.RoleAdmin), h.UpdateUserRole)

	api.GET("/care-plans", h.ListCarePlans)
	api.GET("/care-plans/:id", h.GetCarePlan)
	api.GET("/service-requests", h.ListServiceRequests)
	api.POST("/service-requests", h.CreateServiceRequest)
	api.POST("/schedule/interview", h.ScheduleInterview)
	api.GET("/profiles/:userId", h.GetProfile)
	api.POST("/profiles/update", h.UpdateProfile)
	api.POST("/documents/upload/init", h.InitDocumentUpload)
	api.GET("/billing/summary", h.BillingSummary)
	api.POST("/matching/zia", h.Matching)
}

// subjectID is the acting user: the validated session when there is one,
// otherwise the development user.
func subjectID(c *gin.Context) string {
	if s, ok := middleware.CurrentSession(c); ok {
		return s.UserID
	}
	return service.DevUserID
}
