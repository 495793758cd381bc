package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type auditRequest struct {
	Action    string         `json:"action"`
	SubjectID string         `json:"subjectId"`
	Metadata  map[string]any `json:"metadata"`
}

// RecordAudit is the collection endpoint the HTTP audit sink posts to. It
// only logs, so a portal pointed at itself cannot loop, and it always
// answers success.
func (h HandlerSet) RecordAudit(c *gin.Context) {
	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Action == "" {
		h.log.Warn().Err(err).Msg("discarding malformed audit event")
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	h.log.Info().
		Str("action", req.Action).
		Str("subject_id", req.SubjectID).
		Str("request_id", c.Writer.Header().Get("X-Request-Id")).
		Fields(req.Metadata).
		Msg("[audit] event received")

	c.JSON(http.StatusOK, gin.H{"success": true})
}
