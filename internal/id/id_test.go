package id

import (
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Deterministic(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewGenerator(42)
	b := NewGenerator(42)
	for i := 0; i < 5; i++ {
		at := ts.Add(time.Duration(i) * time.Minute)
		assert.Equal(t, a.New(at), b.New(at))
	}

	c := NewGenerator(7)
	assert.NotEqual(t, NewGenerator(42).New(ts), c.New(ts))
}

func TestGenerator_SortableAndStamped(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(1)

	first := g.New(ts)
	second := g.New(ts)
	assert.Less(t, first, second, "same-millisecond IDs must increase")

	parsed, err := ulid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, ts.UnixMilli(), int64(parsed.Time()))
}

type exhaustedEntropy struct{}

func (exhaustedEntropy) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerator_ReseedsWhenEntropyFails(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewGenerator(3)
	a.mono = exhaustedEntropy{}
	b := NewGenerator(3)
	b.mono = exhaustedEntropy{}

	var id string
	require.NotPanics(t, func() { id = a.New(ts) })
	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ts.UnixMilli(), int64(parsed.Time()))
	assert.Equal(t, id, b.New(ts), "reseeding stays deterministic")

	assert.Less(t, id, a.New(ts), "the reseeded source is monotonic again")
}
