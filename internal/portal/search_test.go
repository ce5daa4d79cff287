package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telemed-portal/internal/backend"
	"github.com/wolfman30/telemed-portal/internal/resource"
)

func TestSearchShortQueryNeverHitsBackend(t *testing.T) {
	api := &fakeAPI{}
	search := NewGlobalSearch(0, 0, testOptions())

	for _, q := range []string{"", "k", " ka ", "äö"} {
		view, err := search.Search(context.Background(), "sid", api, q)
		require.NoError(t, err)
		assert.True(t, view.TooShort, q)
		assert.Nil(t, view.Results)
	}
	assert.Zero(t, api.count("search"))
}

func TestSearchResults(t *testing.T) {
	api := &fakeAPI{searchResults: &backend.SearchResults{
		Doctors: []backend.Doctor{{ID: 1, Name: "Dr. Weber"}},
	}}
	search := NewGlobalSearch(0, 3, testOptions())

	view, err := search.Search(context.Background(), "sid", api, " weber ")
	require.NoError(t, err)
	assert.Equal(t, "weber", view.Query)
	assert.False(t, view.Empty)
	require.Len(t, view.Results.Doctors, 1)

	api.searchResults = &backend.SearchResults{}
	view, err = search.Search(context.Background(), "sid", api, "xyzzy")
	require.NoError(t, err)
	assert.True(t, view.Empty)
}

func TestSearchLastQueryWins(t *testing.T) {
	api := &fakeAPI{}
	search := NewGlobalSearch(200*time.Millisecond, 3, testOptions())

	first := make(chan error, 1)
	go func() {
		_, err := search.Search(context.Background(), "sid", api, "kar")
		first <- err
	}()
	time.Sleep(30 * time.Millisecond)

	view, err := search.Search(context.Background(), "sid", api, "kardio")
	require.NoError(t, err)
	assert.Equal(t, "kardio", view.Query)

	assert.ErrorIs(t, <-first, resource.ErrSuperseded)
	assert.Equal(t, []string{"kardio"}, api.searches)
}

func TestSearchSessionsAreIndependent(t *testing.T) {
	api := &fakeAPI{}
	search := NewGlobalSearch(50*time.Millisecond, 3, testOptions())

	errs := make(chan error, 2)
	for _, sid := range []string{"a", "b"} {
		go func() {
			_, err := search.Search(context.Background(), sid, api, "fieber")
			errs <- err
		}()
	}
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, 2, api.count("search"))
	search.Forget("a")
}
