package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagesForgetDropsSessionState(t *testing.T) {
	pages := NewPages(Deps{Options: testOptions()})

	state, err := pages.Symptoms.Describe("sid", "Husten seit gestern", "")
	require.NoError(t, err)
	require.NotEmpty(t, state.Description)

	pages.Forget("sid")

	assert.Empty(t, pages.Symptoms.State("sid").Description)
}
