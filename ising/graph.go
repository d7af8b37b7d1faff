// Package ising models Ising problems: linear biases over spin variables in
// {-1, +1} plus quadratic couplers between variable pairs.
//
// A Graph is immutable once constructed. The annealing engine walks its
// adjacency lists on every sweep, so construction validates eagerly and
// precomputes per-variable neighbor lists; sampling itself never fails on
// problem shape.
package ising

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrCouplerLengthMismatch is returned when the coupler slices passed to
	// NewGraph do not have equal lengths.
	ErrCouplerLengthMismatch = errors.New("coupler slices must have equal length")
)

// CouplerRangeError is returned when a coupler references a variable outside
// [0, NumVars).
type CouplerRangeError struct {
	// Coupler is the position in the input slices.
	Coupler int
	// Var is the offending variable index.
	Var int
	// NumVars is the number of variables implied by the bias slice.
	NumVars int
}

func (e *CouplerRangeError) Error() string {
	return fmt.Sprintf("coupler %d references variable %d, want range [0, %d)", e.Coupler, e.Var, e.NumVars)
}

// Neighbor is one adjacency entry: the variable at the other end of a
// coupler and the coupler's weight.
type Neighbor struct {
	Var    int
	Weight float64
}

// Graph is a validated, immutable Ising problem.
//
// The energy of a spin assignment s is
//
//	E(s) = offset + sum_v h[v]*s[v] + sum_(u,v) w*s[u]*s[v]
//
// where offset collects the constant contributions of self couplers
// (s*s == 1) and, for graphs built via FromQUBO, the constant term of the
// binary-to-spin transform.
type Graph struct {
	h           []float64
	adj         [][]Neighbor
	numCouplers int
	offset      float64
}

// NewGraph builds a problem graph from linear biases and coupler triples
// (starts[i], ends[i], weights[i]).
//
// The number of variables is len(h). Couplers are validated before any state
// is built: mismatched slice lengths return ErrCouplerLengthMismatch and an
// out-of-range endpoint returns a *CouplerRangeError.
//
// Duplicate couplers are kept and contribute independently. Self couplers
// (start == end) are legal; they add their weight to the constant offset and
// never enter the adjacency lists.
func NewGraph(h []float64, starts, ends []int, weights []float64) (*Graph, error) {
	if len(starts) != len(ends) || len(starts) != len(weights) {
		return nil, fmt.Errorf("%w: starts=%d ends=%d weights=%d",
			ErrCouplerLengthMismatch, len(starts), len(ends), len(weights))
	}

	n := len(h)
	for i := range starts {
		if starts[i] < 0 || starts[i] >= n {
			return nil, &CouplerRangeError{Coupler: i, Var: starts[i], NumVars: n}
		}
		if ends[i] < 0 || ends[i] >= n {
			return nil, &CouplerRangeError{Coupler: i, Var: ends[i], NumVars: n}
		}
	}

	g := &Graph{
		h:   slices.Clone(h),
		adj: make([][]Neighbor, n),
	}
	for i := range starts {
		u, v, w := starts[i], ends[i], weights[i]
		g.numCouplers++
		if u == v {
			g.offset += w
			continue
		}
		g.adj[u] = append(g.adj[u], Neighbor{Var: v, Weight: w})
		g.adj[v] = append(g.adj[v], Neighbor{Var: u, Weight: w})
	}

	return g, nil
}

// NumVars returns the number of spin variables.
func (g *Graph) NumVars() int {
	return len(g.h)
}

// NumCouplers returns the number of couplers, self couplers included.
func (g *Graph) NumCouplers() int {
	return g.numCouplers
}

// Bias returns the linear bias of variable v.
func (g *Graph) Bias(v int) float64 {
	return g.h[v]
}

// Neighbors returns the adjacency list of variable v. The returned slice is
// owned by the graph and must not be modified.
func (g *Graph) Neighbors(v int) []Neighbor {
	return g.adj[v]
}

// Offset returns the constant energy offset.
func (g *Graph) Offset() float64 {
	return g.offset
}

// Energy computes the full energy of a spin assignment in O(n + couplers).
// Every entry of spins must be -1 or +1 and len(spins) must equal NumVars.
//
// The engine tracks energy incrementally during sweeps; Energy exists as the
// ground truth for tests and for scoring externally supplied states.
func (g *Graph) Energy(spins []int8) float64 {
	e := g.offset
	for v, b := range g.h {
		e += b * float64(spins[v])
	}
	for v, nbs := range g.adj {
		for _, nb := range nbs {
			// Each coupler appears in both endpoint lists; count it once.
			if nb.Var > v {
				e += nb.Weight * float64(spins[v]) * float64(spins[nb.Var])
			}
		}
	}
	return e
}

// LocalField computes h[v] plus the weighted sum of v's neighbor spins.
// Flipping v changes the energy by -2*s[v]*LocalField(v, spins).
func (g *Graph) LocalField(v int, spins []int8) float64 {
	f := g.h[v]
	for _, nb := range g.adj[v] {
		f += nb.Weight * float64(spins[nb.Var])
	}
	return f
}
