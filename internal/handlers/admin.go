package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare/portal/internal/models"
)

type updateRoleRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

func (h HandlerSet) UpdateUserRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	if err := h.portal.UpdateUserRole(c.Request.Context(), subjectID(c), req.UserID, models.Role(req.Role)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
