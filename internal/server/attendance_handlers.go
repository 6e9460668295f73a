package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/attendance"
	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/models"
)

type scanRequest struct {
	Code string `json:"code"`
}

func (s *Server) scan(c *gin.Context) {
	actor, _ := auth.ActorFromContext(c)

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	var req scanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	// The student is whoever the identity token says they are; the body
	// cannot mark someone else present.
	record, err := s.recorder.Mark(c.Request.Context(), sessionID, actor.ID, req.Code, attendance.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":        true,
		"marked_at": record.MarkedAt,
	})
}

func (s *Server) studentMetrics(c *gin.Context) {
	actor, _ := auth.ActorFromContext(c)

	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
		return
	}

	// Students may only read their own metrics; instructors may read any.
	if actor.Kind == models.ActorStudent && actor.ID != studentID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		return
	}

	metrics, err := s.recorder.StudentMetrics(c.Request.Context(), studentID)
	if err != nil {
		renderError(c, err)
		return
	}

	perSubject := make([]gin.H, 0, len(metrics.PerSubject))
	for _, subject := range metrics.PerSubject {
		perSubject = append(perSubject, gin.H{
			"subject":  subject.Subject,
			"eligible": subject.Eligible,
			"attended": subject.Attended,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_sessions_eligible": metrics.TotalSessionsEligible,
		"attended_count":          metrics.AttendedCount,
		"per_subject":             perSubject,
	})
}

func (s *Server) auditByActor(c *gin.Context) {
	kind, id, limit, ok := auditQuery(c)
	if !ok {
		return
	}

	events, err := s.auditor.ByActor(c.Request.Context(), models.ActorKind(kind), id, limit)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": auditViews(events)})
}

func (s *Server) auditByTarget(c *gin.Context) {
	kind, id, limit, ok := auditQuery(c)
	if !ok {
		return
	}

	events, err := s.auditor.ByTarget(c.Request.Context(), models.TargetKind(kind), id, limit)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": auditViews(events)})
}

func auditQuery(c *gin.Context) (kind string, id uuid.UUID, limit int, ok bool) {
	kind = c.Param("kind")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return "", uuid.Nil, 0, false
	}

	limit = 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	return kind, id, limit, true
}

func auditViews(events []*models.AuditEvent) []gin.H {
	views := make([]gin.H, 0, len(events))
	for _, event := range events {
		view := gin.H{
			"action":      event.Action,
			"actor_kind":  event.ActorKind,
			"target_kind": event.TargetKind,
			"metadata":    event.Metadata,
			"created_at":  event.CreatedAt,
		}
		if event.ActorID != nil {
			view["actor_id"] = event.ActorID.String()
		}
		if event.TargetID != nil {
			view["target_id"] = event.TargetID.String()
		}
		views = append(views, view)
	}
	return views
}
