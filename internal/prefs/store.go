package prefs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps bookmarks and reminders in Postgres.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

// NewPostgresStore creates a preference store on top of a pgx pool.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Bookmarks(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT tip_id FROM health_tip_bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC, tip_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("prefs: list bookmarks: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("prefs: scan bookmark: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prefs: list bookmarks: %w", err)
	}
	return ids, nil
}

// ToggleBookmark removes an existing bookmark or adds a missing one and
// reports whether the tip is bookmarked afterwards.
func (s *PostgresStore) ToggleBookmark(ctx context.Context, userID, tipID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM health_tip_bookmarks WHERE user_id = $1 AND tip_id = $2`, userID, tipID)
	if err != nil {
		return false, fmt.Errorf("prefs: remove bookmark: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO health_tip_bookmarks (user_id, tip_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tip_id) DO NOTHING`, userID, tipID, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("prefs: add bookmark: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Reminders(ctx context.Context, userID int64) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT medication_id, enabled, times, updated_at
		FROM medication_reminders
		WHERE user_id = $1
		ORDER BY medication_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("prefs: list reminders: %w", err)
	}
	defer rows.Close()

	out := []Reminder{}
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.MedicationID, &r.Enabled, &r.Times, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("prefs: scan reminder: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("prefs: list reminders: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveReminder(ctx context.Context, userID int64, r Reminder) (Reminder, error) {
	if err := r.Normalize(); err != nil {
		return Reminder{}, err
	}
	r.UpdatedAt = s.now().UTC()

	_, err := s.db.Exec(ctx, `
		INSERT INTO medication_reminders (user_id, medication_id, enabled, times, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, medication_id)
		DO UPDATE SET enabled = EXCLUDED.enabled, times = EXCLUDED.times, updated_at = EXCLUDED.updated_at`,
		userID, r.MedicationID, r.Enabled, r.Times, r.UpdatedAt)
	if err != nil {
		return Reminder{}, fmt.Errorf("prefs: save reminder: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) DeleteReminder(ctx context.Context, userID, medicationID int64) error {
	if _, err := s.db.Exec(ctx, `
		DELETE FROM medication_reminders WHERE user_id = $1 AND medication_id = $2`, userID, medicationID); err != nil {
		return fmt.Errorf("prefs: delete reminder: %w", err)
	}
	return nil
}
