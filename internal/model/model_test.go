package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryValidation(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		kind       Kind
		importance int
		wantErr    error
	}{
		{"valid", "Important secret", KindObservation, 10, nil},
		{"empty", "", KindObservation, 5, ErrEmptyContent},
		{"blank", "   ", KindObservation, 5, ErrEmptyContent},
		{"too long", strings.Repeat("a", MaxContentLength+1), KindObservation, 5, ErrContentTooLong},
		{"max length", strings.Repeat("가", MaxContentLength), KindReflection, 5, nil},
		{"importance low", "x", KindPlan, 0, ErrImportanceRange},
		{"importance high", "x", KindPlan, 11, ErrImportanceRange},
		{"unknown kind", "x", Kind("dream"), 5, ErrUnknownKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMemory(tt.content, tt.kind, tt.importance)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.importance, m.Importance)
			assert.Empty(t, m.ID, "id is stamped by the store")
		})
	}
}

func TestNewAgentProfile(t *testing.T) {
	p, err := NewAgentProfile(" Min-jun ", "Overly dramatic", "Get cast in a main role")
	require.NoError(t, err)
	assert.Equal(t, "Min-jun", p.Name)

	_, err = NewAgentProfile("Seo-yeon", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProfile)
	assert.Contains(t, err.Error(), "traits, goal")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abcdef", 3))
	assert.Equal(t, "가나", TruncateRunes("가나다", 2))
	assert.Equal(t, "short", TruncateRunes("short", 280))
	assert.Equal(t, "", TruncateRunes("x", 0))
}

func TestInteractionRecordCloneIsDeep(t *testing.T) {
	turn := TurnRecord{
		Speaker:   "A",
		Listeners: []string{"B"},
		Retrieved: []ScoredMemory{{Memory: Memory{Content: "m", Tags: []string{"t"}}}},
	}
	orig := InteractionRecord{Participants: []string{"A", "B"}, Turn: &turn}

	c := orig.Clone()
	c.Participants[0] = "Z"
	c.Turn.Listeners[0] = "Z"
	c.Turn.Retrieved[0].Memory.Tags[0] = "z"

	assert.Equal(t, "A", orig.Participants[0])
	assert.Equal(t, "B", orig.Turn.Listeners[0])
	assert.Equal(t, "t", orig.Turn.Retrieved[0].Memory.Tags[0])
}
