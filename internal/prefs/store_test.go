package prefs

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store := NewPostgresStore(mock)
	store.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return store, mock
}

func TestPostgresBookmarks(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT tip_id FROM health_tip_bookmarks").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"tip_id"}).AddRow(int64(3)).AddRow(int64(1)))

	ids, err := store.Bookmarks(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggleBookmarkAdds(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM health_tip_bookmarks").
		WithArgs(int64(7), int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO health_tip_bookmarks").
		WithArgs(int64(7), int64(3), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	on, err := store.ToggleBookmark(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.True(t, on)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggleBookmarkRemoves(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM health_tip_bookmarks").
		WithArgs(int64(7), int64(3)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	on, err := store.ToggleBookmark(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.False(t, on)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToggleBookmarkError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM health_tip_bookmarks").
		WithArgs(int64(7), int64(3)).
		WillReturnError(errors.New("connection reset"))

	_, err := store.ToggleBookmark(context.Background(), 7, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefs: remove bookmark")
}

func TestPostgresSaveReminderNormalizesTimes(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO medication_reminders").
		WithArgs(int64(7), int64(11), true, []string{"08:00", "20:30"}, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := store.SaveReminder(context.Background(), 7, Reminder{
		MedicationID: 11,
		Enabled:      true,
		Times:        []string{"20:30", " 08:00", "08:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00", "20:30"}, saved.Times)
	assert.Equal(t, store.now().UTC(), saved.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveReminderRejectsBadTime(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.SaveReminder(context.Background(), 7, Reminder{MedicationID: 11, Times: []string{"25:00"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReminders(t *testing.T) {
	store, mock := newMockStore(t)
	updated := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT medication_id, enabled, times, updated_at").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"medication_id", "enabled", "times", "updated_at"}).
			AddRow(int64(11), true, []string{"08:00"}, updated))

	got, err := store.Reminders(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Reminder{MedicationID: 11, Enabled: true, Times: []string{"08:00"}, UpdatedAt: updated}, got[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteReminder(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM medication_reminders").
		WithArgs(int64(7), int64(11)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, store.DeleteReminder(context.Background(), 7, 11))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	on, err := s.ToggleBookmark(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, on)
	_, _ = s.ToggleBookmark(ctx, 1, 20)

	ids, err := s.Bookmarks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 10}, ids)

	on, err = s.ToggleBookmark(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, on)

	ids, _ = s.Bookmarks(ctx, 2)
	assert.Empty(t, ids)

	_, err = s.SaveReminder(ctx, 1, Reminder{MedicationID: 5, Enabled: true, Times: []string{"9:15"}})
	require.NoError(t, err)
	_, err = s.SaveReminder(ctx, 1, Reminder{MedicationID: 2, Enabled: false})
	require.NoError(t, err)

	rs, err := s.Reminders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, int64(2), rs[0].MedicationID)
	assert.Equal(t, []string{"09:15"}, rs[1].Times)

	require.NoError(t, s.DeleteReminder(ctx, 1, 5))
	rs, _ = s.Reminders(ctx, 1)
	assert.Len(t, rs, 1)
}
