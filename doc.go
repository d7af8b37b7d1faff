// Package annealgo is an embedded simulated-annealing sampler for Ising and
// QUBO problems.
//
// Annealgo draws independent low-energy spin samples from a problem graph by
// running Metropolis sweeps under a caller-supplied inverse-temperature
// schedule. Results are deterministic: the same problem, schedule, and seed
// produce bit-identical samples on every run, at any concurrency level.
//
// # Quick Start
//
// Ising form (linear biases plus coupler triples):
//
//	ctx := context.Background()
//	s, _ := annealgo.Ising(h, starts, ends, weights).Build()
//	set, _ := s.Anneal(schedule.Linear(0.1, 3, 1000)).
//	    Samples(100).
//	    Seed(42).
//	    Execute(ctx)
//
//	for i, rec := range set.Iter() {
//	    fmt.Println(i, rec.Energy, rec.Spins)
//	}
//
// QUBO form (binary variables, automatically transformed):
//
//	s, _ := annealgo.QUBO(ising.QUBO{{0, 0}: -1, {0, 1}: 2}).Build()
//
// # Determinism Model
//
// Every sample k of a run derives its own random stream from the batch seed,
// so samples are statistically independent and execution order is
// irrelevant:
//
//	set, _ := s.Anneal(sched).Samples(1000).Seed(7).Execute(ctx)  // sequential
//	// identical output with annealgo.WithMaxConcurrency(8)
//
// # Checkpoints
//
// Intermediate spin states can be captured during the run, either spread
// evenly over the schedule or at explicit sweep indices:
//
//	set, _ := s.Anneal(sched).Samples(10).Seed(1).Checkpoints(4).Execute(ctx)
//	snapshot := set.Intermediate(3, 0)  // sample 3 after the first quarter
//
// # Persistence
//
// Sample sets serialize into a compact, checksummed archive format that can
// live on any BlobStore (local disk, memory, S3, MinIO):
//
//	store, _ := samplestore.NewLocalStore("./runs")
//	_ = archive.WriteTo(ctx, store, "run-0042.smp", set)
//	set2, _ := archive.ReadFrom(ctx, store, "run-0042.smp")
//
// # Key Features
//
//   - Deterministic, seeded sampling (xorshift64* streams, SplitMix64 derivation)
//   - O(n + couplers) sweeps via incremental local-field caching
//   - Ising and QUBO inputs, self couplers and duplicate couplers tolerated
//   - Intermediate checkpoint capture
//   - Parallel batches with bit-identical results
//   - Compressed archives (zstd/lz4) on pluggable storage (S3/MinIO/local)
package annealgo
