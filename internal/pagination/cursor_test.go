package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/newsfeed/internal/apperr"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678000, time.UTC)
	c, err := Decode(EncodeTime(ts, "post-1"))
	require.NoError(t, err)
	assert.Equal(t, "post-1", c.ID)
	assert.True(t, ts.Equal(c.Time()))
}

func TestDecodeEmptyIsFirstPage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestDecodeMalformed(t *testing.T) {
	for _, s := range []string{"%%%", "bm90LWpzb24", Encode(1, "")} {
		_, err := Decode(s)
		require.Error(t, err, s)
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-5))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
}

func TestBuild(t *testing.T) {
	type row struct {
		t  int64
		id string
	}
	key := func(r row) (int64, string) { return r.t, r.id }
	conv := func(r row) string { return r.id }

	page := Build([]row{{3, "c"}, {2, "b"}, {1, "a"}}, 2, key, conv)
	assert.Equal(t, []string{"c", "b"}, page.Items)
	c, err := Decode(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Micros)
	assert.Equal(t, "b", c.ID)

	last := Build([]row{{1, "a"}}, 2, key, conv)
	assert.Equal(t, []string{"a"}, last.Items)
	assert.Empty(t, last.NextCursor)
}
