package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/enrollment"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/session"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rollcall-app/rollcall/internal/telemetry"
	"github.com/rollcall-app/rollcall/internal/token"
	"github.com/rs/zerolog"
)

// Sentinel errors for scan denials.
var (
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrSessionCancelled = errors.New("session was cancelled")
	ErrNotStarted       = errors.New("session has not started")
	ErrWindowClosed     = errors.New("session window has closed")
	ErrNotEnrolled      = errors.New("student is not enrolled in this assignment")
)

// Reason codes attached to audit events and API error responses.
const (
	ReasonAccepted        = "accepted"
	ReasonSessionNotFound = "session_not_found"
	ReasonTokenInvalid    = "token_invalid"
	ReasonCancelled       = "session_cancelled"
	ReasonNotStarted      = "not_started"
	ReasonWindowClosed    = "window_closed"
	ReasonNotEnrolled     = "not_enrolled"
	ReasonAlreadyMarked   = "already_marked"
	ReasonStudentUnknown  = "student_not_found"
	ReasonInternal        = "internal_error"
)

// Reason maps a scan error to its stable reason code.
func Reason(err error) string {
	switch {
	case err == nil:
		return ReasonAccepted
	case errors.Is(err, store.ErrSessionNotFound):
		return ReasonSessionNotFound
	case errors.Is(err, ErrInvalidToken):
		return ReasonTokenInvalid
	case errors.Is(err, ErrSessionCancelled):
		return ReasonCancelled
	case errors.Is(err, ErrNotStarted):
		return ReasonNotStarted
	case errors.Is(err, ErrWindowClosed):
		return ReasonWindowClosed
	case errors.Is(err, ErrNotEnrolled):
		return ReasonNotEnrolled
	case errors.Is(err, store.ErrAlreadyMarked):
		return ReasonAlreadyMarked
	case errors.Is(err, store.ErrStudentNotFound):
		return ReasonStudentUnknown
	default:
		return ReasonInternal
	}
}

// Config holds deployment policy for the recorder.
type Config struct {
	// RequireToken makes a presented code mandatory for every scan. When
	// false, a scan without a code skips token validation at reduced
	// assurance.
	RequireToken bool
}

// RequestMeta carries the request context captured on each record for fraud
// review.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Recorder orchestrates a scan: token freshness, time window, enrollment,
// then a commit guarded by the storage uniqueness constraint. Every terminal
// outcome is audit-logged with its reason code.
type Recorder struct {
	sessions   store.SessionStore
	attendance store.AttendanceStore
	catalog    store.CatalogStore
	rotator    *token.Rotator
	oracle     *enrollment.Oracle
	auditor    *audit.Logger
	cfg        Config
	now        func() time.Time
}

// NewRecorder creates an attendance recorder.
func NewRecorder(sessions store.SessionStore, attendance store.AttendanceStore, catalog store.CatalogStore, rotator *token.Rotator, oracle *enrollment.Oracle, auditor *audit.Logger, cfg Config) *Recorder {
	return &Recorder{
		sessions:   sessions,
		attendance: attendance,
		catalog:    catalog,
		rotator:    rotator,
		oracle:     oracle,
		auditor:    auditor,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Mark records a student as present in a session. A scan attempt is terminal
// in one call; there is no persisted intermediate state.
func (r *Recorder) Mark(ctx context.Context, sessionID, studentID uuid.UUID, code string, meta RequestMeta) (*models.AttendanceRecord, error) {
	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, r.deny(ctx, sessionID, studentID, meta, err)
	}

	if code == "" && r.cfg.RequireToken {
		return nil, r.deny(ctx, sessionID, studentID, meta, ErrInvalidToken)
	}
	var tokenUsed *string
	if code != "" {
		valid, err := r.rotator.Validate(ctx, sessionID, code)
		if err != nil {
			return nil, r.deny(ctx, sessionID, studentID, meta, err)
		}
		if valid == nil {
			return nil, r.deny(ctx, sessionID, studentID, meta, ErrInvalidToken)
		}
		tokenUsed = &valid.Code
	}

	// Always decide on a freshly derived status; the stored one may be stale.
	switch session.DeriveStatus(sess, r.now()) {
	case models.SessionCancelled:
		return nil, r.deny(ctx, sessionID, studentID, meta, ErrSessionCancelled)
	case models.SessionScheduled:
		return nil, r.deny(ctx, sessionID, studentID, meta, ErrNotStarted)
	case models.SessionCompleted:
		return nil, r.deny(ctx, sessionID, studentID, meta, ErrWindowClosed)
	}

	enrolled, err := r.oracle.IsEnrolled(ctx, studentID, sess.AssignmentID)
	if err != nil {
		return nil, r.deny(ctx, sessionID, studentID, meta, err)
	}
	if !enrolled {
		return nil, r.deny(ctx, sessionID, studentID, meta, ErrNotEnrolled)
	}

	// Fast-path check for a friendlier duplicate message. Not authoritative:
	// the insert below is what actually guards against concurrent duplicates.
	if _, err := r.attendance.Get(ctx, sessionID, studentID); err == nil {
		return nil, r.deny(ctx, sessionID, studentID, meta, store.ErrAlreadyMarked)
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, r.deny(ctx, sessionID, studentID, meta, err)
	}

	student, err := r.catalog.GetStudent(ctx, studentID)
	if err != nil {
		return nil, r.deny(ctx, sessionID, studentID, meta, err)
	}

	record := &models.AttendanceRecord{
		RecordID:  uuid.New(),
		SessionID: sessionID,
		StudentID: studentID,
		// Snapshots taken now, immune to later profile edits.
		StudentName:   student.Name,
		StudentNumber: student.Number,
		TokenUsed:     tokenUsed,
		MarkedAt:      r.now(),
		SourceIP:      meta.IP,
		UserAgent:     meta.UserAgent,
	}

	if err := r.attendance.Insert(ctx, record); err != nil {
		// A concurrent duplicate lost the race at the store; surface it the
		// same way as the fast path.
		return nil, r.deny(ctx, sessionID, studentID, meta, err)
	}

	telemetry.GetMetrics().ScansTotal.WithLabelValues(ReasonAccepted).Inc()
	r.auditor.Log(ctx, models.AuditScanAccepted, models.ActorStudent, &studentID, models.TargetSession, &sessionID, map[string]string{
		"reason":     ReasonAccepted,
		"source_ip":  meta.IP,
		"user_agent": meta.UserAgent,
	})

	zerolog.Ctx(ctx).Info().
		Str("session_id", sessionID.String()).
		Str("student_id", studentID.String()).
		Msg("attendance recorded")

	return record, nil
}

// StudentMetrics reports a student's eligibility and attendance per subject.
func (r *Recorder) StudentMetrics(ctx context.Context, studentID uuid.UUID) (*store.StudentMetrics, error) {
	if _, err := r.catalog.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return r.attendance.StudentMetrics(ctx, studentID)
}

// deny audit-logs a denial with its reason code and passes the error through.
func (r *Recorder) deny(ctx context.Context, sessionID, studentID uuid.UUID, meta RequestMeta, err error) error {
	reason := Reason(err)

	telemetry.GetMetrics().ScansTotal.WithLabelValues(reason).Inc()
	r.auditor.Log(ctx, models.AuditScanDenied, models.ActorStudent, &studentID, models.TargetSession, &sessionID, map[string]string{
		"reason":     reason,
		"source_ip":  meta.IP,
		"user_agent": meta.UserAgent,
	})

	return err
}
