// Package testutil provides testing utilities for annealgo.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic problem generators and a brute-force solver
// for computing exact ground states of small instances.
//
// # Problem Generation
//
//	gen := testutil.NewGenerator(seed)
//	g := gen.RandomGraph(64, 256)        // uniform biases and couplers
//	ring := testutil.FerromagneticRing(32)
//
// # Exact Ground States (Ground Truth)
//
//	spins, energy := testutil.BruteForce(g)
//
// # Sampler Quality
//
//	rate := testutil.SuccessRate(set, energy, 1e-9)
package testutil
