// Package importance scores free text on a 1-10 salience scale using fixed
// keyword rules.
package importance

import (
	"strings"

	"github.com/rcliao/agent-sim/internal/model"
)

const (
	Base          = 3
	EventBonus    = 2
	EmotionBonus  = 1
	RelationBonus = 1
	GoalBonus     = 2
)

// Keyword sets. ASCII entries match whole tokens; the rest match as
// substrings because Korean particles attach directly to the stem.
var (
	EventKeywords = []string{
		"decision", "decide", "decided", "promise", "promised", "mistake",
		"confess", "confession", "secret", "incident", "crisis", "success",
		"succeeded", "failure", "failed", "audition",
		"결정", "약속", "실수", "고백", "비밀", "사건", "위기", "성공", "실패",
	}
	EmotionKeywords = []string{
		"angry", "joy", "anxious", "happy", "sad", "depressed", "surprised",
		"moved", "excited", "afraid",
		"화남", "기쁨", "불안", "행복", "슬픔", "우울", "놀람", "감동",
	}
	RelationKeywords = []string{
		"we", "us", "our", "you", "together", "favor", "help",
		"우리", "너", "나", "함께", "부탁", "도움",
	}
)

// Breakdown explains how a score was reached.
type Breakdown struct {
	Events    []string `json:"events,omitempty"`
	Emotions  []string `json:"emotions,omitempty"`
	Relations []string `json:"relations,omitempty"`
	GoalMatch bool     `json:"goal_match"`
	Score     int      `json:"score"`
}

// Classify scores text with an optional goal hint. It is a pure function.
func Classify(text, goalHint string) Breakdown {
	tokens := make(map[string]bool)
	for _, tok := range model.Tokenize(text) {
		tokens[tok] = true
	}
	lower := strings.ToLower(text)

	var b Breakdown
	b.Events = matches(EventKeywords, tokens, lower)
	b.Emotions = matches(EmotionKeywords, tokens, lower)
	b.Relations = matches(RelationKeywords, tokens, lower)

	goal := strings.ToLower(strings.TrimSpace(goalHint))
	b.GoalMatch = goal != "" && strings.Contains(lower, goal)

	score := Base +
		EventBonus*len(b.Events) +
		EmotionBonus*len(b.Emotions) +
		RelationBonus*len(b.Relations)
	if b.GoalMatch {
		score += GoalBonus
	}
	b.Score = clamp(score)
	return b
}

// Score returns only the clamped importance.
func Score(text, goalHint string) int {
	return Classify(text, goalHint).Score
}

// FirstEmotion returns the emotion keyword that appears earliest in text, or "".
func FirstEmotion(text string) string {
	tokens := make(map[string]bool)
	for _, tok := range model.Tokenize(text) {
		tokens[tok] = true
	}
	lower := strings.ToLower(text)
	best, bestIdx := "", -1
	for _, kw := range matches(EmotionKeywords, tokens, lower) {
		idx := strings.Index(lower, kw)
		if bestIdx < 0 || idx < bestIdx {
			best, bestIdx = kw, idx
		}
	}
	return best
}

func matches(keywords []string, tokens map[string]bool, lower string) []string {
	var out []string
	for _, kw := range keywords {
		if isASCII(kw) {
			if tokens[kw] {
				out = append(out, kw)
			}
			continue
		}
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func clamp(score int) int {
	if score < model.MinImportance {
		return model.MinImportance
	}
	if score > model.MaxImportance {
		return model.MaxImportance
	}
	return score
}
