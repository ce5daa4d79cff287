package symptoms

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(n int) []Entry {
	out := make([]Entry, n)
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = Entry{
			ID:        fmt.Sprintf("check-%d", i),
			Severity:  Mild,
			CheckedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func assertCappedNewestFirst(t *testing.T, store HistoryStore) {
	t.Helper()
	ctx := context.Background()
	for _, e := range entries(7) {
		require.NoError(t, store.Append(ctx, 42, e))
	}

	got, err := store.List(ctx, 42)
	require.NoError(t, err)
	require.Len(t, got, DefaultHistoryLimit)
	assert.Equal(t, "check-6", got[0].ID)
	assert.Equal(t, "check-2", got[4].ID)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].CheckedAt.After(got[i].CheckedAt))
	}

	other, err := store.List(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.Clear(ctx, 42))
	got, err = store.List(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisHistoryStoreCapsNewestFirst(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	assertCappedNewestFirst(t, NewRedisHistoryStore(client, DefaultHistoryLimit, time.Hour))
}

func TestRedisHistoryStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisHistoryStore(client, 0, time.Hour)
	require.NoError(t, store.Append(context.Background(), 1, Entry{ID: "a"}))
	assert.Equal(t, time.Hour, mr.TTL("portal:symptoms:1:history"))
}

func TestMemoryHistoryStoreCapsNewestFirst(t *testing.T) {
	assertCappedNewestFirst(t, NewMemoryHistoryStore(0))
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, Severe, ParseSeverity(" SEVERE "))
	assert.Equal(t, Moderate, ParseSeverity("moderate"))
	assert.Equal(t, Mild, ParseSeverity("mild"))
	assert.Equal(t, Mild, ParseSeverity("unbearable"))
	assert.Equal(t, Mild, ParseSeverity(""))
}

func TestIsEmergency(t *testing.T) {
	cases := []struct {
		text     string
		severity Severity
		want     bool
	}{
		{"Seit heute morgen Atemnot beim Treppensteigen", Mild, true},
		{"starker Brustschmerz links", Moderate, true},
		{"Lähmung im Arm", Mild, true},
		{"Starke Blutung am Bein", Mild, true},
		{"leichte Kopfschmerzen", Severe, true},
		{"leichte Kopfschmerzen", Mild, false},
		{"", Moderate, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsEmergency(tc.text, tc.severity), tc.text)
	}
}
