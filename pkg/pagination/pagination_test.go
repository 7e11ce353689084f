package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-3))
	require.Equal(t, 10, NormalizeLimit(10))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	require.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 5, 1, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.True(t, c.CreatedAt.Equal(parsed.CreatedAt))
	require.Equal(t, c.ID, parsed.ID)

	blank, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, blank)

	_, err = ParseCursor("%%%")
	require.Error(t, err)
}

func TestTrim(t *testing.T) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	now := time.Now().UTC()
	rows := []row{{uuid.New(), now}, {uuid.New(), now.Add(-time.Minute)}, {uuid.New(), now.Add(-2 * time.Minute)}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 2, key)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)
	c, err := ParseCursor(next)
	require.NoError(t, err)
	require.Equal(t, rows[1].id, c.ID)

	page, next = Trim(rows, 5, key)
	require.Len(t, page, 3)
	require.Empty(t, next)
}
