package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortedAndUnique(t *testing.T) {
	ids := make([]string, 500)
	seen := map[string]bool{}
	for i := range ids {
		ids[i] = New()
		assert.Len(t, ids[i], 26)
		assert.False(t, seen[ids[i]], "duplicate id %s", ids[i])
		seen[ids[i]] = true
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	got, err := Time(At(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
