package ising

import (
	"cmp"
	"fmt"
	"slices"
)

// QUBO is a quadratic unconstrained binary optimization problem over
// variables x in {0, 1}, keyed by variable pairs. The entry {u, u} holds the
// linear coefficient of x[u]; {u, v} with u != v holds the coefficient of
// x[u]*x[v]. The objective is the sum of all terms.
type QUBO map[[2]int]float64

// FromQUBO converts a QUBO into an equivalent spin problem via
// x = (1 + s) / 2.
//
// The transform's constant term is folded into the graph offset, so
// Graph.Energy of a spin assignment equals the QUBO objective of the
// corresponding binary assignment exactly. The number of variables is one
// past the largest index mentioned; indices never mentioned become isolated
// zero-bias variables.
//
// Keys {u, v} and {v, u} are distinct terms and both contribute, matching
// the duplicate-coupler semantics of NewGraph.
func FromQUBO(q QUBO) (*Graph, error) {
	n := 0
	for k := range q {
		if k[0] < 0 || k[1] < 0 {
			return nil, fmt.Errorf("negative QUBO index (%d, %d)", k[0], k[1])
		}
		n = max(n, k[0]+1, k[1]+1)
	}

	// Map iteration order is random; sort terms so coupler order, and with
	// it every seeded trajectory, is reproducible.
	keys := make([][2]int, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b [2]int) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})

	h := make([]float64, n)
	starts := make([]int, 0, len(keys))
	ends := make([]int, 0, len(keys))
	weights := make([]float64, 0, len(keys))
	var offset float64

	for _, k := range keys {
		u, v, c := k[0], k[1], q[k]
		if u == v {
			h[u] += c / 2
			offset += c / 2
			continue
		}
		h[u] += c / 4
		h[v] += c / 4
		starts = append(starts, u)
		ends = append(ends, v)
		weights = append(weights, c/4)
		offset += c / 4
	}

	g, err := NewGraph(h, starts, ends, weights)
	if err != nil {
		return nil, err
	}
	g.offset += offset
	return g, nil
}

// SpinsToBinary maps spins in {-1, +1} to binary values via x = (s + 1) / 2.
func SpinsToBinary(spins []int8) []int8 {
	x := make([]int8, len(spins))
	for i, s := range spins {
		x[i] = (s + 1) / 2
	}
	return x
}

// BinaryToSpins maps binary values in {0, 1} to spins via s = 2x - 1.
func BinaryToSpins(x []int8) []int8 {
	spins := make([]int8, len(x))
	for i, b := range x {
		spins[i] = 2*b - 1
	}
	return spins
}
