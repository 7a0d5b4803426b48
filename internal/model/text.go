package model

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize case-folds s and splits it into word tokens. Empty tokens never
// appear in the result.
func Tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}
