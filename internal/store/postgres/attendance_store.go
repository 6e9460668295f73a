package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/store"
	"github.com/rs/zerolog/log"
)

// AttendanceStore implements store.AttendanceStore using PostgreSQL. The
// unique constraint on (session_id, student_id) is the sole duplicate guard;
// two simultaneous scans resolve by the database rejecting the second insert.
type AttendanceStore struct {
	pool *pgxpool.Pool
}

// NewAttendanceStore creates a new PostgreSQL-backed attendance store.
func NewAttendanceStore(pool *pgxpool.Pool) *AttendanceStore {
	return &AttendanceStore{
		pool: pool,
	}
}

// Insert writes an attendance record. Returns store.ErrAlreadyMarked when the
// (session_id, student_id) constraint is violated.
func (s *AttendanceStore) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (
			record_id, session_id, student_id,
			student_name, student_number, token_used,
			marked_at, source_ip, user_agent
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8::inet, $9
		)
	`

	// Empty IP becomes NULL for proper INET handling.
	var sourceIP any
	if record.SourceIP != "" {
		sourceIP = record.SourceIP
	}

	_, err := s.pool.Exec(ctx, query,
		record.RecordID,
		record.SessionID,
		record.StudentID,
		record.StudentName,
		record.StudentNumber,
		record.TokenUsed,
		record.MarkedAt,
		sourceIP,
		record.UserAgent,
	)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrAlreadyMarked) {
			return mapped
		}
		return fmt.Errorf("failed to insert attendance record: %w", mapped)
	}

	log.Debug().
		Str("session_id", record.SessionID.String()).
		Str("student_id", record.StudentID.String()).
		Msg("Recorded attendance")

	return nil
}

// Get retrieves the record for (session, student) if one exists.
func (s *AttendanceStore) Get(ctx context.Context, sessionID, studentID uuid.UUID) (*models.AttendanceRecord, error) {
	query := `
		SELECT record_id, session_id, student_id, student_name, student_number,
		       token_used, marked_at, source_ip, user_agent
		FROM attendance_records
		WHERE session_id = $1 AND student_id = $2
	`

	record, err := scanAttendanceRecord(s.pool.QueryRow(ctx, query, sessionID, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return record, nil
}

// ListBySession returns all attendance records for a session in mark order.
func (s *AttendanceStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.AttendanceRecord, error) {
	query := `
		SELECT record_id, session_id, student_id, student_name, student_number,
		       token_used, marked_at, source_ip, user_agent
		FROM attendance_records
		WHERE session_id = $1
		ORDER BY marked_at
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []*models.AttendanceRecord
	for rows.Next() {
		record, err := scanAttendanceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// StudentMetrics aggregates a student's eligibility and attendance per
// subject. A session counts as eligible once it has started, was not
// cancelled, and its assignment matches the student's section and term.
func (s *AttendanceStore) StudentMetrics(ctx context.Context, studentID uuid.UUID) (*store.StudentMetrics, error) {
	query := `
		SELECT ta.subject,
		       COUNT(*) AS eligible,
		       COUNT(ar.record_id) AS attended
		FROM sessions se
		JOIN teaching_assignments ta ON ta.assignment_id = se.assignment_id
		JOIN students st ON st.student_id = $1
		 AND st.section = ta.section
		 AND st.term = ta.term
		LEFT JOIN attendance_records ar
		  ON ar.session_id = se.session_id AND ar.student_id = $1
		WHERE se.cancelled_at IS NULL
		  AND se.start_time <= NOW()
		GROUP BY ta.subject
		ORDER BY ta.subject
	`

	rows, err := s.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query student metrics: %w", err)
	}
	defer rows.Close()

	metrics := &store.StudentMetrics{}
	for rows.Next() {
		var subject store.SubjectMetrics
		if err := rows.Scan(&subject.Subject, &subject.Eligible, &subject.Attended); err != nil {
			return nil, fmt.Errorf("failed to scan student metrics: %w", err)
		}
		metrics.TotalSessionsEligible += subject.Eligible
		metrics.AttendedCount += subject.Attended
		metrics.PerSubject = append(metrics.PerSubject, subject)
	}
	return metrics, rows.Err()
}

func scanAttendanceRecord(row rowScanner) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	var sourceIP *netip.Prefix
	err := row.Scan(
		&record.RecordID,
		&record.SessionID,
		&record.StudentID,
		&record.StudentName,
		&record.StudentNumber,
		&record.TokenUsed,
		&record.MarkedAt,
		&sourceIP,
		&record.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	if sourceIP != nil {
		record.SourceIP = sourceIP.Addr().String()
	}
	return &record, nil
}
