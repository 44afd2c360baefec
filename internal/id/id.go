package id

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces ULIDs from a seeded entropy source, so two generators
// built with the same seed and fed the same timestamps return the same IDs.
type Generator struct {
	mu    sync.Mutex
	seed  int64
	mono  io.Reader
	reset int64
}

// NewGenerator returns a Generator whose entropy is derived from seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{seed: seed, mono: monotonic(seed)}
}

func monotonic(seed int64) io.Reader {
	return ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with t.
//
// IDs generated for the same millisecond stay lexicographically increasing
// until the monotonic entropy overflows; the source is then reseeded and
// ordering within that millisecond is no longer guaranteed.
func (g *Generator) New(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := ulid.Timestamp(t.UTC())
	id, err := ulid.New(ts, g.mono)
	if err != nil {
		g.reset++
		g.mono = monotonic(g.seed + g.reset)
		if id, err = ulid.New(ts, g.mono); err != nil {
			id = ulid.Make()
		}
	}
	return id.String()
}
