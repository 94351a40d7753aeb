package composition

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// RandomGenerator is a stand-in for the real composer: a bounded random walk
// over scale degrees in 4/4, one measure per two seconds of requested length.
type RandomGenerator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	seed    int64
	degrees int
}

// rhythms are the measure fillings the walk picks from; each sums to 4 beats.
var rhythms = [][]float64{
	{1, 1, 1, 1},
	{2, 1, 1},
	{1, 1, 2},
	{0.5, 0.5, 1, 2},
	{1.5, 0.5, 1, 1},
	{0.5, 0.5, 0.5, 0.5, 1, 1},
	{4},
	{2, 2},
}

// NewRandomGenerator walks over degrees scale keys ("0".."degrees-1").
// A zero seed is replaced by one taken from the clock, so each process
// composes something new.
func NewRandomGenerator(seed int64, degrees int) *RandomGenerator {
	if degrees <= 0 {
		degrees = 8
	}
	for seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomGenerator{
		rng:     rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		seed:    seed,
		degrees: degrees,
	}
}

// Seed returns the seed in use, for reproducing a run.
func (g *RandomGenerator) Seed() int64 { return g.seed }

func (g *RandomGenerator) Generate(ctx context.Context, durationSeconds int) (Composition, error) {
	if err := ctx.Err(); err != nil {
		return Composition{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	count := durationSeconds / 2
	if durationSeconds > 0 && count == 0 {
		count = 1
	}
	measures := make([]Measure, 0, count)
	degree := g.degrees / 2
	for i := 0; i < count; i++ {
		rhythm := rhythms[g.rng.IntN(len(rhythms))]
		notes := make([]Note, 0, len(rhythm))
		for _, beats := range rhythm {
			degree += g.rng.IntN(5) - 2
			if degree < 0 {
				degree = -degree
			}
			if degree >= g.degrees {
				degree = 2*(g.degrees-1) - degree
			}
			degree = min(max(degree, 0), g.degrees-1)
			notes = append(notes, Note{Sound: strconv.Itoa(degree), Duration: beats})
		}
		measures = append(measures, Measure{Notes: notes})
	}
	return New(measures), nil
}
