package memory

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-sim/internal/model"
)

var base = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustMemory(t *testing.T, content string) model.Memory {
	t.Helper()
	m, err := model.NewMemory(content, model.KindObservation, 5)
	require.NoError(t, err)
	return m
}

func contents(ms []model.Memory) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Content
	}
	return out
}

func TestAddStampsMetadata(t *testing.T) {
	s := New(5, WithClock(fixedClock(base)))

	a, err := s.Add(mustMemory(t, "first"))
	require.NoError(t, err)
	b, err := s.Add(mustMemory(t, "second"))
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, uint64(1), a.Seq)
	assert.Equal(t, uint64(2), b.Seq)
	assert.True(t, b.CreatedAt.After(a.CreatedAt), "stamped times must strictly increase under a frozen clock")
}

func TestAddRejectsInvalid(t *testing.T) {
	s := New(5)
	_, err := s.Add(model.Memory{Content: "", Kind: model.KindObservation, Importance: 5})
	require.ErrorIs(t, err, model.ErrEmptyContent)

	_, err = s.Add(model.Memory{Content: "x", Kind: model.KindObservation, Importance: 11})
	require.ErrorIs(t, err, model.ErrImportanceRange)
	assert.Equal(t, 0, s.Len())
}

func TestEvictionKeepsNewest(t *testing.T) {
	const capacity = 4
	for _, extra := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("extra=%d", extra), func(t *testing.T) {
			s := New(capacity, WithClock(fixedClock(base)))
			var want []string
			for i := 0; i < capacity+extra; i++ {
				c := fmt.Sprintf("m%d", i)
				_, err := s.Add(mustMemory(t, c))
				require.NoError(t, err)
				want = append(want, c)
			}
			assert.Equal(t, want[len(want)-capacity:], contents(s.All()))
		})
	}
}

func TestEvictionScenarioCapacityTwo(t *testing.T) {
	s := New(2)
	for i, c := range []string{"A", "B", "C"} {
		m := mustMemory(t, c)
		m.CreatedAt = base.Add(time.Duration(i+1) * time.Hour)
		_, err := s.Add(m)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"B", "C"}, contents(s.All()))
}

func TestAddKeepsCreatedAtIncreasing(t *testing.T) {
	s := New(2)

	late := mustMemory(t, "late")
	late.CreatedAt = base.Add(3 * time.Hour)
	early := mustMemory(t, "early")
	early.CreatedAt = base.Add(time.Hour)

	a, err := s.Add(late)
	require.NoError(t, err)
	b, err := s.Add(early)
	require.NoError(t, err)
	assert.Equal(t, base.Add(3*time.Hour), a.CreatedAt)
	assert.True(t, b.CreatedAt.After(a.CreatedAt), "an older caller time is moved past the newest memory")
	assert.Equal(t, uint64(2), b.Seq)

	same := mustMemory(t, "same")
	same.CreatedAt = b.CreatedAt
	c, err := s.Add(same)
	require.NoError(t, err)
	assert.True(t, c.CreatedAt.After(b.CreatedAt))
	assert.Equal(t, []string{"early", "same"}, contents(s.All()))
}

func TestEvictionOfRestoredStoreUsesCreatedAt(t *testing.T) {
	mem := func(content string, at time.Duration, seq uint64) model.Memory {
		m := mustMemory(t, content)
		m.CreatedAt = base.Add(at)
		m.Seq = seq
		m.ID = content
		return m
	}
	data, err := json.Marshal(storeJSON{
		Capacity: 3,
		Seq:      3,
		Memories: []model.Memory{
			mem("late", 2*time.Hour, 1),
			mem("tie-a", time.Hour, 2),
			mem("tie-b", time.Hour, 3),
		},
	})
	require.NoError(t, err)

	var s Store
	require.NoError(t, json.Unmarshal(data, &s))
	_, err = s.Add(mustMemory(t, "fresh"))
	require.NoError(t, err)
	// tie-a and tie-b share the earliest time; tie-a was inserted first.
	assert.Equal(t, []string{"late", "tie-b", "fresh"}, contents(s.All()))
}

func TestCapacityZeroDiscards(t *testing.T) {
	s := New(0)
	m, err := s.Add(mustMemory(t, "ephemeral"))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.All())

	_, err = s.Add(model.Memory{Content: "", Kind: model.KindObservation, Importance: 5})
	assert.Error(t, err, "validation still applies at capacity 0")

	assert.Equal(t, 0, New(-3).Capacity())
}

func TestAllReturnsCopy(t *testing.T) {
	s := New(3)
	m := mustMemory(t, "tagged")
	m.Tags = []string{"x"}
	_, err := s.Add(m)
	require.NoError(t, err)

	got := s.All()
	got[0].Content = "changed"
	got[0].Tags[0] = "y"

	again := s.All()
	assert.Equal(t, "tagged", again[0].Content)
	assert.Equal(t, "x", again[0].Tags[0])
}

func TestRecent(t *testing.T) {
	s := New(10)
	for _, c := range []string{"a", "b", "c", "d"} {
		_, err := s.Add(mustMemory(t, c))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"c", "d"}, contents(s.Recent(2)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, s.Contents(10))
	assert.Nil(t, s.Recent(0))
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(3)
	_, err := s.Add(mustMemory(t, "shared"))
	require.NoError(t, err)

	c := s.Clone()
	_, err = c.Add(mustMemory(t, "only in clone"))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, c.Len())
}

func TestJSONRoundTripKeepsSequence(t *testing.T) {
	s := New(3, WithClock(fixedClock(base)))
	for _, c := range []string{"a", "b"} {
		_, err := s.Add(mustMemory(t, c))
		require.NoError(t, err)
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var restored Store
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, 3, restored.Capacity())
	assert.Equal(t, []string{"a", "b"}, contents(restored.All()))

	m, err := restored.Add(mustMemory(t, "c"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.Seq)
}
