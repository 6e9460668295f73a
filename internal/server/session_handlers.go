package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/models"
)

type createSessionRequest struct {
	AssignmentID string    `json:"assignment_id" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
}

type tokenResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type createSessionResponse struct {
	SessionID    string        `json:"session_id"`
	Status       string        `json:"status"`
	CurrentToken tokenResponse `json:"current_token"`

	// Returned once only, at creation. Every other read path excludes it.
	SecretSeed string `json:"secret_seed"`
}

func (s *Server) createSession(c *gin.Context) {
	actor, _ := auth.ActorFromContext(c)

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment_id"})
		return
	}

	sess, first, err := s.sessions.Create(c.Request.Context(), assignmentID, req.StartTime, req.EndTime, actor.ID, s.cfg.TokenValidity)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createSessionResponse{
		SessionID: sess.SessionID.String(),
		Status:    string(sess.Status),
		CurrentToken: tokenResponse{
			Code:      first.Code,
			ExpiresAt: first.ExpiresAt,
		},
		SecretSeed: sess.SecretSeed,
	})
}

type rotateTokenRequest struct {
	ValidityMs int64 `json:"validity_ms"`
}

func (s *Server) rotateToken(c *gin.Context) {
	actor, _ := auth.ActorFromContext(c)

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	var req rotateTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	validity := s.cfg.TokenValidity
	if req.ValidityMs > 0 {
		validity = time.Duration(req.ValidityMs) * time.Millisecond
	}

	tok, err := s.sessions.Rotate(c.Request.Context(), sessionID, actor.ID, validity)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Code:      tok.Code,
		ExpiresAt: tok.ExpiresAt,
	})
}

func (s *Server) cancelSession(c *gin.Context) {
	actor, _ := auth.ActorFromContext(c)

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	if err := s.sessions.Cancel(c.Request.Context(), sessionID, actor.ID); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type sessionView struct {
	SessionID    string     `json:"session_id"`
	AssignmentID string     `json:"assignment_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

type attendeeView struct {
	StudentName   string    `json:"student_name"`
	StudentNumber string    `json:"student_number"`
	MarkedAt      time.Time `json:"marked_at"`
}

func sessionToView(sess *models.Session, status models.SessionStatus) sessionView {
	return sessionView{
		SessionID:    sess.SessionID.String(),
		AssignmentID: sess.AssignmentID.String(),
		StartTime:    sess.StartTime,
		EndTime:      sess.EndTime,
		Status:       string(status),
		CreatedAt:    sess.CreatedAt,
		CancelledAt:  sess.CancelledAt,
	}
}

func (s *Server) sessionDetail(c *gin.Context) {
	actor, _ := auth.ActorFromContext(c)

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	detail, err := s.sessions.Detail(c.Request.Context(), sessionID, actor.ID)
	if err != nil {
		renderError(c, err)
		return
	}

	attendees := make([]attendeeView, 0, len(detail.Attendees))
	for _, record := range detail.Attendees {
		attendees = append(attendees, attendeeView{
			StudentName:   record.StudentName,
			StudentNumber: record.StudentNumber,
			MarkedAt:      record.MarkedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"session":   sessionToView(detail.Session, detail.Status),
		"attendees": attendees,
	})
}

func (s *Server) listSessions(c *gin.Context) {
	actor, _ := auth.ActorFromContext(c)

	assignmentID, err := uuid.Parse(c.Query("assignment"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assignment query parameter required"})
		return
	}

	sessions, err := s.sessions.List(c.Request.Context(), assignmentID, actor.ID)
	if err != nil {
		renderError(c, err)
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionToView(sess, sess.Status))
	}

	c.JSON(http.StatusOK, gin.H{"sessions": views})
}
