// Package sampleset holds the result of a sampling run: spin rows, their
// energies, and optional intermediate snapshots.
//
// All rows live in flat pre-sized buffers so a batch of samples costs three
// allocations regardless of sample count. Row accessors return subslices of
// the backing buffers, not copies.
package sampleset

import (
	"cmp"
	"iter"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Record is one sample row: a spin assignment and its energy. The spins
// slice aliases the set's backing buffer.
type Record struct {
	Spins  []int8
	Energy float64
}

// AggregateRow is a distinct spin assignment with its occurrence count.
type AggregateRow struct {
	Spins  []int8
	Energy float64
	Count  int
}

// SampleSet is a fixed-shape result container.
//
// Spins are stored row-major with stride NumVars. Intermediate snapshots are
// stored per sample, then per checkpoint, each with stride NumVars, so the
// snapshot of sample i at checkpoint c starts at (i*NumCheckpoints+c)*NumVars.
type SampleSet struct {
	numSamples     int
	numVars        int
	numCheckpoints int

	spins         []int8
	energies      []float64
	intermediates []int8
}

// New allocates a zeroed set for the given shape. Negative dimensions are
// treated as zero.
func New(numSamples, numVars, numCheckpoints int) *SampleSet {
	numSamples = max(numSamples, 0)
	numVars = max(numVars, 0)
	numCheckpoints = max(numCheckpoints, 0)

	return &SampleSet{
		numSamples:     numSamples,
		numVars:        numVars,
		numCheckpoints: numCheckpoints,
		spins:          make([]int8, numSamples*numVars),
		energies:       make([]float64, numSamples),
		intermediates:  make([]int8, numSamples*numCheckpoints*numVars),
	}
}

// NumSamples returns the number of rows.
func (s *SampleSet) NumSamples() int { return s.numSamples }

// NumVars returns the number of variables per row.
func (s *SampleSet) NumVars() int { return s.numVars }

// NumCheckpoints returns the number of intermediate snapshots per row.
func (s *SampleSet) NumCheckpoints() int { return s.numCheckpoints }

// Row returns the spin row of sample i as a mutable view into the backing
// buffer.
func (s *SampleSet) Row(i int) []int8 {
	return s.spins[i*s.numVars : (i+1)*s.numVars]
}

// Energy returns the energy of sample i.
func (s *SampleSet) Energy(i int) float64 {
	return s.energies[i]
}

// SetEnergy records the energy of sample i.
func (s *SampleSet) SetEnergy(i int, e float64) {
	s.energies[i] = e
}

// Energies returns the backing energy buffer, one entry per sample.
func (s *SampleSet) Energies() []float64 {
	return s.energies
}

// Spins returns the backing spin buffer, row-major with stride NumVars.
func (s *SampleSet) Spins() []int8 {
	return s.spins
}

// Intermediates returns the backing snapshot buffer. See the SampleSet
// documentation for the layout.
func (s *SampleSet) Intermediates() []int8 {
	return s.intermediates
}

// Intermediate returns the snapshot of sample i at checkpoint c as a mutable
// view into the backing buffer.
func (s *SampleSet) Intermediate(i, c int) []int8 {
	off := (i*s.numCheckpoints + c) * s.numVars
	return s.intermediates[off : off+s.numVars]
}

// UpSpins returns the set of variables with spin +1 in row i as a bitmap.
// This is the row encoding used by the archive format and a convenient
// fixed-size digest for comparing assignments.
func (s *SampleSet) UpSpins(i int) *roaring.Bitmap {
	bm := roaring.New()
	for v, spin := range s.Row(i) {
		if spin > 0 {
			bm.Add(uint32(v))
		}
	}
	return bm
}

// Iter yields (index, record) for every sample in order. The yielded spin
// slices alias the backing buffer.
func (s *SampleSet) Iter() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := 0; i < s.numSamples; i++ {
			if !yield(i, Record{Spins: s.Row(i), Energy: s.energies[i]}) {
				return
			}
		}
	}
}

// LowestOptions controls the energy tolerance of Lowest.
type LowestOptions struct {
	// Atol is the absolute tolerance.
	Atol float64
	// Rtol is the tolerance relative to the magnitude of the minimum.
	Rtol float64
}

// Lowest returns a new set holding the rows whose energy is within tolerance
// of the minimum, in their original order. A row qualifies if
// energy <= min + Atol + Rtol*|min|. Intermediate snapshots of the selected
// rows are carried over. The result of an empty set is empty.
func (s *SampleSet) Lowest(optFns ...func(o *LowestOptions)) *SampleSet {
	opts := LowestOptions{
		Atol: 1e-8,
		Rtol: 1e-5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if s.numSamples == 0 {
		return New(0, s.numVars, s.numCheckpoints)
	}

	minEnergy := s.energies[0]
	for _, e := range s.energies[1:] {
		minEnergy = min(minEnergy, e)
	}
	bound := minEnergy + opts.Atol + opts.Rtol*math.Abs(minEnergy)

	var keep []int
	for i, e := range s.energies {
		if e <= bound {
			keep = append(keep, i)
		}
	}

	out := New(len(keep), s.numVars, s.numCheckpoints)
	for j, i := range keep {
		copy(out.Row(j), s.Row(i))
		out.energies[j] = s.energies[i]
		for c := 0; c < s.numCheckpoints; c++ {
			copy(out.Intermediate(j, c), s.Intermediate(i, c))
		}
	}
	return out
}

// Aggregate returns the distinct spin rows with their occurrence counts,
// sorted by energy ascending and by first occurrence for equal energies.
// The returned spin slices alias the backing buffer.
func (s *SampleSet) Aggregate() []AggregateRow {
	type group struct {
		first int
		count int
	}

	groups := make(map[string]*group, s.numSamples)
	var order []string
	key := make([]byte, s.numVars)

	for i := 0; i < s.numSamples; i++ {
		for v, spin := range s.Row(i) {
			key[v] = byte(spin)
		}
		k := string(key)
		if g, ok := groups[k]; ok {
			g.count++
			continue
		}
		groups[k] = &group{first: i, count: 1}
		order = append(order, k)
	}

	rows := make([]AggregateRow, 0, len(order))
	for _, k := range order {
		g := groups[k]
		rows = append(rows, AggregateRow{
			Spins:  s.Row(g.first),
			Energy: s.energies[g.first],
			Count:  g.count,
		})
	}
	slices.SortStableFunc(rows, func(a, b AggregateRow) int {
		return cmp.Compare(a.Energy, b.Energy)
	})
	return rows
}
