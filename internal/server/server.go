package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rollcall-app/rollcall/internal/attendance"
	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/auth"
	"github.com/rollcall-app/rollcall/internal/httpmiddleware"
	"github.com/rollcall-app/rollcall/internal/logger"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/session"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rs/zerolog"
)

// Config holds the transport-level settings for the HTTP server.
type Config struct {
	JWTSigningKey string
	JWTIssuer     string

	// TokenValidity applies when a rotate request does not specify one.
	TokenValidity time.Duration

	// ScanRateLimit is per-IP requests per minute on the scan route.
	ScanRateLimit int
}

// HealthChecker reports reachability of a backing dependency.
type HealthChecker func(c *gin.Context) bool

// Server wires the domain services into gin handlers.
type Server struct {
	sessions *session.Manager
	recorder *attendance.Recorder
	auditor  *audit.Logger
	cfg      Config

	limiter httpmiddleware.Limiter
	checks  map[string]HealthChecker
}

// New creates the HTTP server facade.
func New(sessions *session.Manager, recorder *attendance.Recorder, auditor *audit.Logger, limiter httpmiddleware.Limiter, cfg Config) *Server {
	return &Server{
		sessions: sessions,
		recorder: recorder,
		auditor:  auditor,
		cfg:      cfg,
		limiter:  limiter,
		checks:   make(map[string]HealthChecker),
	}
}

// WithHealthCheck registers a named dependency check for /healthz.
func (s *Server) WithHealthCheck(name string, check HealthChecker) *Server {
	s.checks[name] = check
	return s
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router(log zerolog.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(logger.GinRequests(log, "/healthz", "/metrics"))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.health)

	authd := r.Group("/v1", auth.Middleware(s.cfg.JWTSigningKey, s.cfg.JWTIssuer))

	instructor := authd.Group("", auth.RequireKind(models.ActorInstructor))
	instructor.POST("/sessions", s.createSession)
	instructor.GET("/sessions", s.listSessions)
	instructor.GET("/sessions/:id", s.sessionDetail)
	instructor.POST("/sessions/:id/rotate", s.rotateToken)
	instructor.POST("/sessions/:id/cancel", s.cancelSession)
	instructor.GET("/audit/actors/:kind/:id", s.auditByActor)
	instructor.GET("/audit/targets/:kind/:id", s.auditByTarget)

	var scanChain []gin.HandlerFunc
	if s.limiter != nil {
		scanChain = append(scanChain, httpmiddleware.GinMiddleware(s.limiter))
	}
	scanChain = append(scanChain, auth.RequireKind(models.ActorStudent), s.scan)
	authd.POST("/sessions/:id/scan", scanChain...)

	authd.GET("/students/:id/metrics", s.studentMetrics)

	return r
}

func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	report := gin.H{"status": "ok"}
	for name, check := range s.checks {
		healthy := check(c)
		report[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			report["status"] = "degraded"
		}
	}
	c.JSON(status, report)
}

// renderError translates a domain error into an HTTP status and a stable
// reason code. The mapping lives here and nowhere else.
func renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, session.ErrInvalidWindow):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotOwner),
		errors.Is(err, session.ErrAssignmentInactive):
		status = http.StatusForbidden
	case errors.Is(err, session.ErrOverlappingSession),
		errors.Is(err, store.ErrAlreadyMarked):
		status = http.StatusConflict
	case errors.Is(err, store.ErrSessionNotFound),
		errors.Is(err, store.ErrAssignmentNotFound),
		errors.Is(err, store.ErrStudentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrInvalidToken):
		status = http.StatusBadRequest
	case errors.Is(err, attendance.ErrNotStarted),
		errors.Is(err, attendance.ErrWindowClosed),
		errors.Is(err, attendance.ErrSessionCancelled):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal_error"})
		return
	}

	c.JSON(status, gin.H{"error": reasonCode(err)})
}

func reasonCode(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidWindow):
		return "invalid_window"
	case errors.Is(err, session.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, session.ErrAssignmentInactive):
		return "assignment_inactive"
	case errors.Is(err, session.ErrOverlappingSession):
		return "overlapping_session"
	case errors.Is(err, store.ErrAssignmentNotFound):
		return "assignment_not_found"
	default:
		return attendance.Reason(err)
	}
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
