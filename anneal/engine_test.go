package anneal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/annealgo/ising"
	"github.com/hupe1980/annealgo/rng"
	"github.com/hupe1980/annealgo/schedule"
)

func TestRunSingleVariable(t *testing.T) {
	g, err := ising.NewGraph([]float64{1}, nil, nil, nil)
	require.NoError(t, err)

	// A positive bias pushes the spin to -1. At beta 10 the uphill move is
	// accepted with probability exp(-20), so any seed ends at the minimum.
	for seed := uint64(1); seed <= 20; seed++ {
		stream := rng.New(seed)
		st := NewState(g, stream)

		_, err := Run(context.Background(), st, stream, schedule.Schedule{10})
		require.NoError(t, err)

		assert.Equal(t, int8(-1), st.Spins()[0], "seed %d", seed)
		assert.Equal(t, -1.0, st.Energy(), "seed %d", seed)
	}
}

func TestRunDeterministic(t *testing.T) {
	g := randomGraph(t, 20, 10, 6)
	sched := schedule.Linear(0.05, 4, 120)

	run := func() ([]int8, float64, Stats) {
		stream := rng.New(12345)
		st := NewState(g, stream)
		stats, err := Run(context.Background(), st, stream, sched)
		require.NoError(t, err)
		return append([]int8(nil), st.Spins()...), st.Energy(), stats
	}

	spinsA, energyA, statsA := run()
	spinsB, energyB, statsB := run()

	assert.Equal(t, spinsA, spinsB)
	assert.Equal(t, energyA, energyB)
	assert.Equal(t, statsA, statsB)
}

func TestRunEmptySchedule(t *testing.T) {
	g := randomGraph(t, 10, 5, 7)

	stream := rng.New(3)
	st := NewState(g, stream)
	stats, err := Run(context.Background(), st, stream, nil)
	require.NoError(t, err)

	assert.Zero(t, stats.Sweeps)
	assert.Zero(t, stats.Proposed)

	// Zero sweeps leave the initialization untouched and consume no draws.
	control := rng.New(3)
	want := NewState(g, control)
	assert.Equal(t, want.Spins(), st.Spins())
	assert.Equal(t, control.Uint64(), stream.Uint64())
}

func TestRunStats(t *testing.T) {
	g := randomGraph(t, 15, 0, 8)
	stream := rng.New(21)
	st := NewState(g, stream)

	stats, err := Run(context.Background(), st, stream, schedule.Linear(0.1, 1, 40))
	require.NoError(t, err)

	assert.Equal(t, 40, stats.Sweeps)
	assert.Equal(t, int64(40*15), stats.Proposed)
	assert.LessOrEqual(t, stats.Accepted, stats.Proposed)
	assert.Positive(t, stats.Accepted)
}

func TestRunEnergyNonIncreasingWhenGreedy(t *testing.T) {
	g := randomGraph(t, 18, 9, 9)
	stream := rng.New(50)
	st := NewState(g, stream)

	// At an enormous beta every uphill acceptance probability underflows to
	// zero, so per-sweep energies form a non-increasing sequence.
	var energies []float64
	ck := make([]int, 60)
	for i := range ck {
		ck[i] = i
	}
	_, err := Run(context.Background(), st, stream, schedule.Linear(1e9, 1e9, 60), func(o *Options) {
		o.Checkpoints = ck
		o.OnCheckpoint = func(_ int, spins []int8) {
			energies = append(energies, g.Energy(spins))
		}
	})
	require.NoError(t, err)
	require.Len(t, energies, 60)

	for i := 1; i < len(energies); i++ {
		assert.LessOrEqual(t, energies[i], energies[i-1]+1e-9, "sweep %d", i)
	}
}

func TestRunGreedyReachesLocalMinimum(t *testing.T) {
	// Generic real weights make zero deltas impossible in practice, so a
	// long run at huge beta freezes in a strict single-flip local minimum.
	g := randomGraph(t, 12, 6, 10)
	stream := rng.New(77)
	st := NewState(g, stream)

	_, err := Run(context.Background(), st, stream, schedule.Linear(1e9, 1e9, 400))
	require.NoError(t, err)

	for v := 0; v < g.NumVars(); v++ {
		delta := -2 * float64(st.Spins()[v]) * g.LocalField(v, st.Spins())
		assert.GreaterOrEqual(t, delta, -1e-9, "flipping var %d would lower the energy", v)
	}
}

func TestRunCheckpoints(t *testing.T) {
	g := randomGraph(t, 10, 5, 11)
	sched := schedule.Linear(0.1, 3, 25)

	// Reference run without checkpoints.
	refStream := rng.New(5)
	ref := NewState(g, refStream)
	_, err := Run(context.Background(), ref, refStream, sched)
	require.NoError(t, err)

	// Checkpointed run with the same seed: snapshots must not perturb the
	// trajectory, and the final checkpoint must equal the final state.
	stream := rng.New(5)
	st := NewState(g, stream)
	initial := append([]int8(nil), st.Spins()...)

	var ordinals []int
	snapshots := make(map[int][]int8)
	_, err = Run(context.Background(), st, stream, sched, func(o *Options) {
		o.Checkpoints = []int{-1, 11, 24}
		o.OnCheckpoint = func(c int, spins []int8) {
			ordinals = append(ordinals, c)
			snapshots[c] = append([]int8(nil), spins...)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, ordinals)
	assert.Equal(t, initial, snapshots[0], "checkpoint -1 captures the initialization")
	assert.Equal(t, ref.Spins(), snapshots[2], "final checkpoint equals the final state")
	assert.Equal(t, ref.Spins(), st.Spins())
}

func TestRunRepeatedCheckpointIndices(t *testing.T) {
	g := randomGraph(t, 6, 0, 12)
	stream := rng.New(9)
	st := NewState(g, stream)

	var ordinals []int
	_, err := Run(context.Background(), st, stream, schedule.Schedule{1, 1}, func(o *Options) {
		o.Checkpoints = []int{0, 0, 1}
		o.OnCheckpoint = func(c int, _ []int8) { ordinals = append(ordinals, c) }
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ordinals)
}

func TestRunCanceled(t *testing.T) {
	g := randomGraph(t, 10, 0, 13)
	stream := rng.New(2)
	st := NewState(g, stream)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := Run(ctx, st, stream, schedule.Linear(0.1, 1, 100))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Sweeps)
}

func TestCheckpointIndices(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		sweeps int
		want   []int
	}{
		{name: "even split", count: 10, sweeps: 1000, want: []int{99, 199, 299, 399, 499, 599, 699, 799, 899, 999}},
		{name: "uneven split", count: 3, sweeps: 7, want: []int{1, 3, 6}},
		{name: "single", count: 1, sweeps: 42, want: []int{41}},
		{name: "count equals sweeps", count: 4, sweeps: 4, want: []int{0, 1, 2, 3}},
		{name: "more checkpoints than sweeps", count: 4, sweeps: 2, want: []int{-1, 0, 0, 1}},
		{name: "zero sweeps", count: 3, sweeps: 0, want: []int{-1, -1, -1}},
		{name: "zero count", count: 0, sweeps: 100, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckpointIndices(tt.count, tt.sweeps))
		})
	}
}
