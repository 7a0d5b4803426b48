package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyCandidates(t *testing.T) {
	for _, s := range []Selector{NewRoundRobin(), NewRandom(1)} {
		name, ok := s.Select(nil, "A")
		assert.False(t, ok)
		assert.Empty(t, name)
	}
}

func TestRoundRobinFollowsLastSpeaker(t *testing.T) {
	rr := NewRoundRobin()
	names := []string{"A", "B", "C"}

	got, _ := rr.Select(names, "B")
	assert.Equal(t, "C", got)
	got, _ = rr.Select(names, "C")
	assert.Equal(t, "A", got)
}

func TestRoundRobinUsesPointerForUnknownSpeaker(t *testing.T) {
	rr := NewRoundRobin()
	names := []string{"A", "B", "C"}

	first, _ := rr.Select(names, "")
	assert.Equal(t, "A", first)
	second, _ := rr.Select(names, "Z")
	assert.Equal(t, "B", second)

	// The candidate set shrinks; the pointer keeps advancing.
	third, _ := rr.Select([]string{"A", "B"}, "")
	assert.Equal(t, "A", third)
}

func TestRoundRobinFairness(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	for _, m := range []int{1, 4, 7, 13, 40} {
		rr := NewRoundRobin()
		counts := map[string]int{}
		last := ""
		for i := 0; i < m; i++ {
			got, ok := rr.Select(names, last)
			require.True(t, ok)
			counts[got]++
			last = got
		}
		lo, hi := m/len(names), (m+len(names)-1)/len(names)
		for _, n := range names {
			assert.GreaterOrEqual(t, counts[n], lo, "m=%d name=%s", m, n)
			assert.LessOrEqual(t, counts[n], hi, "m=%d name=%s", m, n)
		}
	}
}

func TestRandomAvoidsImmediateRepeat(t *testing.T) {
	r := NewRandom(7)
	names := []string{"A", "B", "C"}
	last := "A"
	for i := 0; i < 100; i++ {
		got, ok := r.Select(names, last)
		require.True(t, ok)
		assert.NotEqual(t, last, got)
		last = got
	}
}

func TestRandomSingleCandidateRepeats(t *testing.T) {
	got, ok := NewRandom(1).Select([]string{"A"}, "A")
	require.True(t, ok)
	assert.Equal(t, "A", got)
}

func TestRandomIsReproducible(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	run := func() []string {
		r := NewRandom(42)
		var seq []string
		last := ""
		for i := 0; i < 20; i++ {
			got, _ := r.Select(names, last)
			seq = append(seq, got)
			last = got
		}
		return seq
	}
	assert.Equal(t, run(), run())
}

func TestNew(t *testing.T) {
	s, err := New("", 0)
	require.NoError(t, err)
	assert.IsType(t, &RoundRobin{}, s)

	s, err = New(StrategyRandom, 3)
	require.NoError(t, err)
	assert.IsType(t, &Random{}, s)

	_, err = New("loudest", 0)
	assert.Error(t, err)
}
