package testutil

import (
	"fmt"
	"math"

	"github.com/hupe1980/annealgo/ising"
	"github.com/hupe1980/annealgo/rng"
	"github.com/hupe1980/annealgo/sampleset"
)

// Generator produces random problem instances from a fixed seed. The same
// seed yields the same sequence of instances on every platform.
//
// A Generator is not safe for concurrent use.
type Generator struct {
	stream *rng.Stream
	seed   uint64
}

// NewGenerator creates a new Generator with the specified seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		stream: rng.New(seed),
		seed:   seed,
	}
}

// Reset rewinds the generator to its initial seed.
func (g *Generator) Reset() {
	g.stream = rng.New(g.seed)
}

// Seed returns the initial seed.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// uniform returns the next value in [-1, 1).
func (g *Generator) uniform() float64 {
	return 2*g.stream.Float64() - 1
}

// bimodal returns -1 or +1 with equal probability.
func (g *Generator) bimodal() float64 {
	if g.stream.Uint64()&1 == 0 {
		return 1
	}
	return -1
}

// RandomGraph builds a problem with numVars spins, biases drawn uniformly
// from [-1, 1) and numCouplers couplers between distinct random variables
// with uniform weights. Variable pairs may repeat; duplicates contribute
// independently.
//
// It panics if numCouplers > 0 and numVars < 2.
func (g *Generator) RandomGraph(numVars, numCouplers int) *ising.Graph {
	h := make([]float64, numVars)
	for i := range h {
		h[i] = g.uniform()
	}

	starts := make([]int, numCouplers)
	ends := make([]int, numCouplers)
	weights := make([]float64, numCouplers)
	for i := range starts {
		u := g.stream.Intn(numVars)
		v := g.stream.Intn(numVars - 1)
		if v >= u {
			v++
		}
		starts[i], ends[i], weights[i] = u, v, g.uniform()
	}

	graph, err := ising.NewGraph(h, starts, ends, weights)
	if err != nil {
		panic(err) // indices are in range by construction
	}
	return graph
}

// RandomRing builds an unbiased ring of numVars spins whose coupler weights
// are drawn from {-1, +1}.
func (g *Generator) RandomRing(numVars int) *ising.Graph {
	graph, err := ising.NewGraph(ringCouplers(numVars, g.bimodal))
	if err != nil {
		panic(err)
	}
	return graph
}

// RandomQUBO builds a QUBO with numTerms random terms over numVars binary
// variables. Diagonal terms are linear coefficients. Colliding pairs
// accumulate, so the map may hold fewer than numTerms entries.
func (g *Generator) RandomQUBO(numVars, numTerms int) ising.QUBO {
	q := make(ising.QUBO, numTerms)
	for i := 0; i < numTerms; i++ {
		u := g.stream.Intn(numVars)
		v := g.stream.Intn(numVars)
		q[[2]int{u, v}] += g.uniform()
	}
	return q
}

// FerromagneticRing builds an unbiased ring of n spins with all coupler
// weights -1. The ground states are the two aligned assignments and the
// ground-state energy is -n.
func FerromagneticRing(n int) *ising.Graph {
	graph, err := ising.NewGraph(ringCouplers(n, func() float64 { return -1 }))
	if err != nil {
		panic(err)
	}
	return graph
}

// AntiferromagneticRing builds an unbiased ring of n spins with all coupler
// weights +1. Even rings order into the two alternating assignments with
// energy -n. Odd rings are frustrated: one bond must stay unsatisfied and
// the ground-state energy is -(n - 2).
func AntiferromagneticRing(n int) *ising.Graph {
	graph, err := ising.NewGraph(ringCouplers(n, func() float64 { return 1 }))
	if err != nil {
		panic(err)
	}
	return graph
}

func ringCouplers(n int, weight func() float64) ([]float64, []int, []int, []float64) {
	h := make([]float64, n)
	starts := make([]int, n)
	ends := make([]int, n)
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		starts[i], ends[i], weights[i] = i, (i+1)%n, weight()
	}
	return h, starts, ends, weights
}

// BruteForce enumerates every spin assignment and returns a minimum-energy
// assignment together with its energy. Ties resolve to the first assignment
// in enumeration order, so the result is reproducible.
//
// The search is exponential; it panics above 24 variables.
func BruteForce(g *ising.Graph) ([]int8, float64) {
	n := g.NumVars()
	if n > 24 {
		panic(fmt.Sprintf("testutil: brute force over %d variables", n))
	}

	spins := make([]int8, n)
	best := make([]int8, n)
	bestEnergy := math.Inf(1)

	for mask := uint32(0); mask < 1<<n; mask++ {
		for v := 0; v < n; v++ {
			if mask&(1<<v) != 0 {
				spins[v] = 1
			} else {
				spins[v] = -1
			}
		}
		if e := g.Energy(spins); e < bestEnergy {
			bestEnergy = e
			copy(best, spins)
		}
	}
	return best, bestEnergy
}

// SuccessRate returns the fraction of samples whose energy lies within tol
// of target. An empty set has rate 0.
func SuccessRate(set *sampleset.SampleSet, target, tol float64) float64 {
	if set.NumSamples() == 0 {
		return 0
	}

	hits := 0
	for _, e := range set.Energies() {
		if math.Abs(e-target) <= tol {
			hits++
		}
	}
	return float64(hits) / float64(set.NumSamples())
}
