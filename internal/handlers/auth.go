package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/portal/internal/middleware"
	"homecare/portal/internal/models"
	"homecare/portal/internal/service"
)

func (h HandlerSet) BeginAuth(c *gin.Context) {
	var req service.BeginAuthInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	url, err := h.auth.BeginAuth(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type beginMFARequest struct {
	UserID string `json:"userId"`
}

func (h HandlerSet) BeginMFA(c *gin.Context) {
	var req beginMFARequest
	// an empty body selects the development user
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c)
			return
		}
	}

	challenge, err := h.auth.BeginMFA(c.Request.Context(), req.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challengeId": challenge.ID})
}

type verifyMFARequest struct {
	ChallengeID string `json:"challengeId" binding:"required"`
	Code        string `json:"code" binding:"required"`
}

func (h HandlerSet) VerifyMFA(c *gin.Context) {
	var req verifyMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	sess, err := h.auth.CompleteMFA(c.Request.Context(), c.Writer, req.ChallengeID, req.Code)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{"success": true}
	if dashboard, ok := h.routes.DashboardFor(sess.Role); ok {
		resp["dashboard"] = dashboard
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) GetSession(c *gin.Context) {
	var current *models.Session
	if s, ok := middleware.CurrentSession(c); ok {
		current = &s
	}
	c.JSON(http.StatusOK, h.auth.CurrentSession(current, c.Request))
}

func (h HandlerSet) SignOut(c *gin.Context) {
	h.auth.SignOut(c.Request.Context(), c.Writer)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
