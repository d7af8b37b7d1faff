// Package anneal implements the Metropolis sweep engine that drives a single
// sample from a random spin assignment toward low energy.
//
// The package is deliberately allocation-free on the hot path: a State is
// built once per sample and then mutated in place, and the engine draws from
// an explicit rng.Stream so trajectories are reproducible without any global
// state.
package anneal

import (
	"github.com/hupe1980/annealgo/ising"
	"github.com/hupe1980/annealgo/rng"
)

// State is the mutable per-sample annealing state: the spin assignment, the
// cached local field of every variable, and the running energy.
//
// The field cache is the reason a sweep costs O(n + couplers) instead of
// O(n * couplers): the energy delta of flipping v is -2*s[v]*fields[v], and
// an accepted flip only touches the fields of v's neighbors.
type State struct {
	graph  *ising.Graph
	spins  []int8
	fields []float64
	energy float64
}

// NewState draws a uniform random spin for every variable and initializes
// the field cache and energy.
//
// Initialization consumes exactly one draw per variable, in index order,
// before any sweep runs: variable v becomes +1 if the draw is below 0.5 and
// -1 otherwise. This draw pattern is fixed; seeded results depend on it.
func NewState(g *ising.Graph, stream *rng.Stream) *State {
	n := g.NumVars()
	st := &State{
		graph:  g,
		spins:  make([]int8, n),
		fields: make([]float64, n),
	}
	for v := range st.spins {
		if stream.Float64() < 0.5 {
			st.spins[v] = 1
		} else {
			st.spins[v] = -1
		}
	}
	st.recompute()
	return st
}

// NewStateFromSpins initializes the state from an explicit assignment.
// Every entry must be -1 or +1; the slice is copied. No draws are consumed.
func NewStateFromSpins(g *ising.Graph, spins []int8) *State {
	st := &State{
		graph:  g,
		spins:  append([]int8(nil), spins...),
		fields: make([]float64, g.NumVars()),
	}
	st.recompute()
	return st
}

// recompute rebuilds the field cache and energy from scratch.
func (st *State) recompute() {
	for v := range st.fields {
		st.fields[v] = st.graph.LocalField(v, st.spins)
	}
	st.energy = st.graph.Energy(st.spins)
}

// flip inverts spin v and applies the precomputed energy delta. The field of
// v itself is untouched; only its neighbors see the new value.
func (st *State) flip(v int, delta float64) {
	st.spins[v] = -st.spins[v]
	sv := float64(st.spins[v])
	for _, nb := range st.graph.Neighbors(v) {
		st.fields[nb.Var] += 2 * nb.Weight * sv
	}
	st.energy += delta
}

// NumVars returns the number of spin variables.
func (st *State) NumVars() int {
	return len(st.spins)
}

// Spins returns the live spin slice. The engine mutates it in place; copy it
// to retain a snapshot.
func (st *State) Spins() []int8 {
	return st.spins
}

// Energy returns the incrementally tracked energy of the current assignment.
// It stays within floating point accumulation error of ising.Graph.Energy.
func (st *State) Energy() float64 {
	return st.energy
}
