// Package compliance keeps the patient-visible audit trail of record access
// and account changes.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telemed-portal/pkg/logging"
)

// EventType represents the type of audited action.
type EventType string

const (
	// EventReportDownloaded is logged when a report PDF is downloaded.
	EventReportDownloaded EventType = "record.report_downloaded"
	// EventLabResultDownloaded is logged when a lab result PDF is downloaded.
	EventLabResultDownloaded EventType = "record.lab_result_downloaded"
	// EventReportsExported is logged when the report list is exported.
	EventReportsExported EventType = "record.reports_exported"
	// EventLabResultsExported is logged when the lab result list is exported.
	EventLabResultsExported EventType = "record.lab_results_exported"
	// EventProfileUpdated is logged when profile fields change.
	EventProfileUpdated EventType = "account.profile_updated"
	// EventPasswordChanged is logged after a successful password change.
	EventPasswordChanged EventType = "account.password_changed"
	// EventEmergencyFlagged is logged when a symptom check shows the emergency banner.
	EventEmergencyFlagged EventType = "symptoms.emergency_flagged"
)

// Event is an immutable audit record.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"event_type"`
	UserID     int64           `json:"user_id"`
	RequestID  string          `json:"request_id,omitempty"`
	ResourceID int64           `json:"resource_id,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Details contains event-specific details. Never put record content here.
type Details struct {
	Filename string   `json:"filename,omitempty"`
	Format   string   `json:"format,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Severity string   `json:"severity,omitempty"`
}

// AuditService writes audit events. Without a database the events only go to
// the log. A nil *AuditService discards everything.
type AuditService struct {
	db     *sql.DB
	logger *logging.Logger
	now    func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB, logger *logging.Logger) *AuditService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditService{db: db, logger: logger, now: time.Now}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event Event) error {
	if s == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}

	s.logger.Info("audit event",
		"event_type", event.Type,
		"user_id", event.UserID,
		"resource_id", event.ResourceID,
		"request_id", event.RequestID,
	)
	if s.db == nil {
		return nil
	}

	query := `
		INSERT INTO record_access_audit (
			id, event_type, user_id, request_id, resource_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Type,
		event.UserID,
		nullString(event.RequestID),
		nullInt(event.ResourceID),
		nullJSON(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// LogDownload logs a record download.
func (s *AuditService) LogDownload(ctx context.Context, kind EventType, userID, resourceID int64, requestID, filename string) error {
	return s.logWithDetails(ctx, Event{
		Type:       kind,
		UserID:     userID,
		RequestID:  requestID,
		ResourceID: resourceID,
	}, Details{Filename: filename})
}

// LogExport logs an export of a record list.
func (s *AuditService) LogExport(ctx context.Context, kind EventType, userID int64, requestID, format, filename string) error {
	return s.logWithDetails(ctx, Event{
		Type:      kind,
		UserID:    userID,
		RequestID: requestID,
	}, Details{Format: format, Filename: filename})
}

// LogAccountChange logs a profile or password change. fields lists the
// changed field names only.
func (s *AuditService) LogAccountChange(ctx context.Context, kind EventType, userID int64, requestID string, fields []string) error {
	return s.logWithDetails(ctx, Event{
		Type:      kind,
		UserID:    userID,
		RequestID: requestID,
	}, Details{Fields: fields})
}

// LogEmergency logs a symptom check that raised the emergency banner.
func (s *AuditService) LogEmergency(ctx context.Context, userID int64, requestID, severity string) error {
	return s.logWithDetails(ctx, Event{
		Type:      EventEmergencyFlagged,
		UserID:    userID,
		RequestID: requestID,
	}, Details{Severity: severity})
}

func (s *AuditService) logWithDetails(ctx context.Context, event Event, details Details) error {
	if s == nil {
		return nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("compliance: encode details: %w", err)
	}
	event.Details = raw
	return s.LogEvent(ctx, event)
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	UserID    int64
	Type      EventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// QueryEvents returns a patient's audit events, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	if s == nil || s.db == nil {
		return []Event{}, nil
	}
	query := `
		SELECT id, event_type, user_id, request_id, resource_id, details, created_at
		FROM record_access_audit
		WHERE user_id = $1
	`
	args := []any{filter.UserID}
	argIdx := 2

	if filter.Type != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.Type)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e          Event
			requestID  sql.NullString
			resourceID sql.NullInt64
			details    []byte
		)
		if err := rows.Scan(&e.ID, &e.Type, &e.UserID, &requestID, &resourceID, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.RequestID = requestID.String
		e.ResourceID = resourceID.Int64
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to read audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
