// Package memory provides the bounded per-agent memory store.
package memory

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/agent-sim/internal/model"
)

// Store is a bounded, insertion-ordered collection of memories owned by a
// single agent. When full, the oldest memory by creation time is evicted.
// A Store is not safe for concurrent use.
type Store struct {
	capacity int
	now      func() time.Time
	entropy  *rand.Rand

	items    []model.Memory
	seq      uint64
	lastTime time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp memories that arrive without a
// creation time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an empty store. A negative capacity is treated as 0, which
// validates and stamps memories but retains none of them.
func New(capacity int, opts ...Option) *Store {
	if capacity < 0 {
		capacity = 0
	}
	s := &Store{
		capacity: capacity,
		now:      time.Now,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) newID(t time.Time) string {
	if s.entropy == nil {
		s.entropy = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

// Add validates m, stamps its ID, creation time and sequence number, and
// inserts it at the newest end. A zero CreatedAt takes the store clock; a
// time at or before the newest memory is moved to just after it, so creation
// times strictly increase within one store. The stamped memory is returned
// even when the store has capacity 0 and keeps nothing.
func (s *Store) Add(m model.Memory) (model.Memory, error) {
	if err := m.Validate(); err != nil {
		return model.Memory{}, fmt.Errorf("add memory: %w", err)
	}
	m = m.Clone()

	t := m.CreatedAt
	if t.IsZero() {
		t = s.now().UTC()
	}
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Nanosecond)
	}
	m.CreatedAt = t
	s.lastTime = t
	if m.ID == "" {
		m.ID = s.newID(m.CreatedAt)
	}
	s.seq++
	m.Seq = s.seq

	if s.capacity == 0 {
		return m, nil
	}
	s.items = append(s.items, m)
	for len(s.items) > s.capacity {
		s.evictOldest()
	}
	return m, nil
}

// evictOldest removes the memory with the earliest CreatedAt, breaking ties by
// the lowest sequence number.
func (s *Store) evictOldest() {
	idx := 0
	for i := 1; i < len(s.items); i++ {
		a, b := s.items[i], s.items[idx]
		if a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.Seq < b.Seq) {
			idx = i
		}
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
}

// Len returns the number of retained memories.
func (s *Store) Len() int { return len(s.items) }

// Capacity returns the configured capacity.
func (s *Store) Capacity() int { return s.capacity }

// All returns a copy of the retained memories in insertion order.
func (s *Store) All() []model.Memory {
	out := make([]model.Memory, len(s.items))
	for i, m := range s.items {
		out[i] = m.Clone()
	}
	return out
}

// Recent returns up to n of the most recently inserted memories, oldest first.
func (s *Store) Recent(n int) []model.Memory {
	if n <= 0 || len(s.items) == 0 {
		return nil
	}
	if n > len(s.items) {
		n = len(s.items)
	}
	out := make([]model.Memory, 0, n)
	for _, m := range s.items[len(s.items)-n:] {
		out = append(out, m.Clone())
	}
	return out
}

// Contents returns the content of up to n recent memories, oldest first.
func (s *Store) Contents(n int) []string {
	recent := s.Recent(n)
	out := make([]string, len(recent))
	for i, m := range recent {
		out[i] = m.Content
	}
	return out
}

// Clone returns an independent copy sharing the clock but no memory data.
func (s *Store) Clone() *Store {
	c := &Store{
		capacity: s.capacity,
		now:      s.now,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
		seq:      s.seq,
		lastTime: s.lastTime,
		items:    s.All(),
	}
	return c
}

type storeJSON struct {
	Capacity int            `json:"capacity"`
	Seq      uint64         `json:"seq"`
	Memories []model.Memory `json:"memories"`
}

// MarshalJSON encodes the capacity, sequence counter and memories.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(storeJSON{Capacity: s.capacity, Seq: s.seq, Memories: s.All()})
}

// UnmarshalJSON restores a store encoded by MarshalJSON. The clock is reset to
// time.Now.
func (s *Store) UnmarshalJSON(data []byte) error {
	var raw storeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored := New(raw.Capacity)
	for _, m := range raw.Memories {
		if m.Seq > restored.seq {
			restored.seq = m.Seq
		}
		if m.CreatedAt.After(restored.lastTime) {
			restored.lastTime = m.CreatedAt
		}
		restored.items = append(restored.items, m.Clone())
	}
	if raw.Seq > restored.seq {
		restored.seq = raw.Seq
	}
	for len(restored.items) > restored.capacity {
		restored.evictOldest()
	}
	*s = *restored
	return nil
}
