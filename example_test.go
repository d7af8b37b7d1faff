package annealgo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/annealgo"
	"github.com/hupe1980/annealgo/ising"
	"github.com/hupe1980/annealgo/schedule"
)

// Example demonstrates annealing a small Ising problem with the fluent API.
func Example() {
	ctx := context.Background()

	// Two spins with strong opposing biases and a weak coupling. The unique
	// minimum is s = [-1 +1] at energy -4.5.
	h := []float64{2, -2}
	starts := []int{0}
	ends := []int{1}
	weights := []float64{0.5}

	s, err := annealgo.Ising(h, starts, ends, weights).Build()
	if err != nil {
		log.Fatal(err)
	}

	set, err := s.Anneal(schedule.Geometric(0.2, 25, 100)).
		Samples(4).
		Seed(42).
		Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}

	lowest := set.Lowest()
	fmt.Printf("energy: %.1f\n", lowest.Energy(0))
	fmt.Println("spins:", lowest.Row(0))
	// Output:
	// energy: -4.5
	// spins: [-1 1]
}

// Example_qubo demonstrates minimizing a binary quadratic objective.
func Example_qubo() {
	ctx := context.Background()

	// Minimize -x0 + 2*x1 + 3*x0*x1 over binary variables. Reported energies
	// equal the binary objective because the transform constant is folded in.
	s, err := annealgo.QUBO(ising.QUBO{
		{0, 0}: -1,
		{1, 1}: 2,
		{0, 1}: 3,
	}).Build()
	if err != nil {
		log.Fatal(err)
	}

	set, err := s.Anneal(schedule.Geometric(0.1, 25, 200)).
		Samples(1).
		Seed(7).
		Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("objective: %.0f\n", set.Energy(0))
	fmt.Println("x:", ising.SpinsToBinary(set.Row(0)))
	// Output:
	// objective: -1
	// x: [1 0]
}

// Example_stream demonstrates streaming samples as they complete.
func Example_stream() {
	ctx := context.Background()

	s := annealgo.Ising([]float64{1}, nil, nil, nil).MustBuild()

	stream := s.Anneal(schedule.Linear(1, 10, 50)).
		Samples(3).
		Seed(5).
		Stream(ctx)

	for sample, err := range stream {
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("sample %d: %.0f\n", sample.Index, sample.Energy)
	}
	// Output:
	// sample 0: -1
	// sample 1: -1
	// sample 2: -1
}

// Example_checkpoints demonstrates capturing intermediate states.
func Example_checkpoints() {
	ctx := context.Background()

	s := annealgo.Ising([]float64{1}, nil, nil, nil).MustBuild()

	// Two snapshots spread over four sweeps, after sweeps 1 and 3.
	set, err := s.Anneal(schedule.Linear(20, 20, 4)).
		Samples(1).
		Seed(9).
		Checkpoints(2).
		Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("checkpoints:", set.NumCheckpoints())
	fmt.Println("snapshot:", set.Intermediate(0, 0))
	// Output:
	// checkpoints: 2
	// snapshot: [-1]
}

// Example_metrics demonstrates attaching a metrics collector.
func Example_metrics() {
	ctx := context.Background()

	mc := &annealgo.BasicMetricsCollector{}
	s := annealgo.Ising([]float64{1, -1}, []int{0}, []int{1}, []float64{0.5}).
		Metrics(mc).
		MustBuild()

	_, err := s.Anneal(schedule.Linear(0.1, 3, 100)).
		Samples(10).
		Seed(1).
		Execute(ctx)
	if err != nil {
		log.Fatal(err)
	}

	stats := mc.GetStats()
	fmt.Println("batches:", stats.BatchCount)
	fmt.Println("samples:", stats.SampleCount)
	// Output:
	// batches: 1
	// samples: 10
}

// Example_schedules demonstrates the schedule constructors.
func Example_schedules() {
	fmt.Println(schedule.Linear(1, 3, 3))
	fmt.Println(schedule.Geometric(1, 4, 3))
	// Output:
	// [1 2 3]
	// [1 2 4]
}
