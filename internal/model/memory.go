// Package model defines the core memory, agent and world data types.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind classifies a memory.
type Kind string

const (
	KindObservation  Kind = "observation"
	KindReflection   Kind = "reflection"
	KindPlan         Kind = "plan"
	KindConversation Kind = "conversation"
)

// ValidKinds are the allowed memory kinds.
var ValidKinds = map[Kind]bool{
	KindObservation:  true,
	KindReflection:   true,
	KindPlan:         true,
	KindConversation: true,
}

const (
	MinImportance    = 1
	MaxImportance    = 10
	MaxContentLength = 2000
)

// Memory represents a stored memory entry. ID, CreatedAt and Seq are stamped
// by the owning store; everything else is fixed at creation.
type Memory struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Kind       Kind      `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
	Importance int       `json:"importance"`
	Source     string    `json:"source,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Seq        uint64    `json:"seq"`
}

// NewMemory builds a validated, unstamped memory.
func NewMemory(content string, kind Kind, importance int) (Memory, error) {
	m := Memory{Content: content, Kind: kind, Importance: importance}
	if err := m.Validate(); err != nil {
		return Memory{}, err
	}
	return m, nil
}

// Validate checks content length, kind and importance range.
func (m Memory) Validate() error {
	n := utf8.RuneCountInString(m.Content)
	if n == 0 || strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	if n > MaxContentLength {
		return fmt.Errorf("%w: %d characters", ErrContentTooLong, n)
	}
	if !ValidKinds[m.Kind] {
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
	if m.Importance < MinImportance || m.Importance > MaxImportance {
		return fmt.Errorf("%w: %d", ErrImportanceRange, m.Importance)
	}
	return nil
}

// Clone returns a copy that shares no slices with m.
func (m Memory) Clone() Memory {
	c := m
	if m.Tags != nil {
		c.Tags = append([]string(nil), m.Tags...)
	}
	return c
}

// TruncateContent cuts s to at most MaxContentLength runes.
func TruncateContent(s string) string {
	return TruncateRunes(s, MaxContentLength)
}

// TruncateRunes cuts s to at most n runes without splitting a character.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// ScoredMemory is a memory with the scores computed for one query.
type ScoredMemory struct {
	Memory     Memory  `json:"memory"`
	Similarity float64 `json:"similarity"`
	Recency    float64 `json:"recency"`
	Importance float64 `json:"importance"`
	Final      float64 `json:"final"`
}

// Store decision reasons.
const (
	ReasonThresholdMet   = "rule-based threshold met"
	ReasonBelowThreshold = "below threshold"
)

// StoreEvent records one store decision for auditing.
type StoreEvent struct {
	Owner      string `json:"owner"`
	Kind       Kind   `json:"kind"`
	Content    string `json:"content"`
	Importance int    `json:"importance"`
	Stored     bool   `json:"stored"`
	Reason     string `json:"reason"`
}
