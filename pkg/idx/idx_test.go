package idx_test

import (
	"testing"
	"time"

	"github.com/project-atlas/readiness/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	t.Parallel()

	a := idx.New()
	b := idx.New()
	require.True(t, a.String() < b.String(), "ids must be monotonically increasing")
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("round trips a generated id", func(t *testing.T) {
		id := idx.New()
		parsed, err := idx.Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := idx.Parse("not-a-ulid")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := idx.Parse("  ")
		require.ErrorIs(t, err, idx.ErrInvalid)
	})
}

func TestNewAtOrdersByTime(t *testing.T) {
	t.Parallel()

	earlier := idx.NewAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	later := idx.NewAt(time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC))
	require.True(t, earlier.String() < later.String(), "older ids must sort first")
}
