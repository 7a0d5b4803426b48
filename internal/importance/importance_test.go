package importance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		goal string
		want int
	}{
		{"plain", "The weather is mild today.", "", 3},
		{"one event one emotion", "It was a crisis and I felt anxious.", "", 6},
		{"korean event and emotion", "그 실패 때문에 불안했다", "", 6},
		{"relation", "Let's go there together.", "", 4},
		{"goal match is case-insensitive", "I want to GET CAST in the play.", "get cast", 5},
		{"goal absent", "Nothing related.", "get cast", 3},
		{"clamped high", "secret promise crisis failure decision mistake", "", 10},
		{"substring is not a token", "Usually nothing happens.", "", 3},
		{"I is not relational", "I am here.", "", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.text, tt.goal))
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	text := "우리 함께 비밀을 지키자. We made a promise and I'm happy."
	first := Classify(text, "promise")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Classify(text, "promise"))
	}
}

func TestScoreRange(t *testing.T) {
	inputs := []string{
		"",
		strings.Repeat("secret crisis happy we ", 50),
		"결정 약속 실수 고백 비밀 사건 위기 성공 실패",
	}
	for _, in := range inputs {
		s := Score(in, in)
		assert.GreaterOrEqual(t, s, 1)
		assert.LessOrEqual(t, s, 10)
	}
}

func TestClassifyBreakdown(t *testing.T) {
	b := Classify("Our secret made me happy", "secret")
	assert.Equal(t, []string{"secret"}, b.Events)
	assert.Equal(t, []string{"happy"}, b.Emotions)
	assert.Equal(t, []string{"our"}, b.Relations)
	assert.True(t, b.GoalMatch)
	assert.Equal(t, 3+2+1+1+2, b.Score)
}

func TestFirstEmotion(t *testing.T) {
	assert.Equal(t, "sad", FirstEmotion("So sad and angry"))
	assert.Equal(t, "", FirstEmotion("neutral words"))
}
