package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/portal/internal/service"
)

func (h HandlerSet) ListCarePlans(c *gin.Context) {
	clientID := c.DefaultQuery("clientId", subjectID(c))
	items, err := h.portal.ListCarePlans(c.Request.Context(), clientID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetCarePlan(c *gin.Context) {
	plan, err := h.portal.GetCarePlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h HandlerSet) CreateServiceRequest(c *gin.Context) {
	var req service.CreateServiceRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	created, err := h.portal.CreateServiceRequest(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": created.ID})
}

func (h HandlerSet) ListServiceRequests(c *gin.Context) {
	clientID := c.DefaultQuery("clientId", subjectID(c))
	items, err := h.portal.ListServiceRequests(c.Request.Context(), clientID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) ScheduleInterview(c *gin.Context) {
	var req service.ScheduleInterviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	interview, err := h.portal.ScheduleInterview(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eventId": interview.EventID})
}

func (h HandlerSet) GetProfile(c *gin.Context) {
	profile, err := h.portal.GetProfile(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	UserID string         `json:"userId" binding:"required"`
	Fields map[string]any `json:"fields" binding:"required"`
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	if _, err := h.portal.UpdateProfile(c.Request.Context(), req.UserID, req.Fields); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h HandlerSet) InitDocumentUpload(c *gin.Context) {
	var req service.UploadInitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	result, err := h.documents.InitUpload(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HandlerSet) BillingSummary(c *gin.Context) {
	clientID := c.DefaultQuery("clientId", subjectID(c))
	c.JSON(http.StatusOK, h.portal.BillingSummary(c.Request.Context(), clientID))
}

func (h HandlerSet) Matching(c *gin.Context) {
	var req service.MatchingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	candidates, err := service.BaselineMatches(req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}
