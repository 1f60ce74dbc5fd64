// Package answertext holds the text heuristics shared by the server and the
// chat client: answer confidence, citation cleanup and display rendering.
package answertext

import (
	"strings"
	"unicode/utf8"
)

// minConfidentLength is the trimmed length below which an answer is never confident.
const minConfidentLength = 25

var refusalPhrases = []string{
	"i don't know",
	"i dont know",
	"i'm not sure",
	"i’m not sure",
	"im not sure",
	"i do not know",
	"i don't have enough",
	"i don't have info",
	"can't answer",
	"cannot answer",
	"sorry, something went wrong",
	"i don't have that information",
	"no sufficient information",
}

// IsConfident classifies an answer as a real answer rather than a refusal.
// It is a logging heuristic, not a measured value.
func IsConfident(answer string) bool {
	t := strings.ToLower(answer)
	for _, p := range refusalPhrases {
		if strings.Contains(t, p) {
			return false
		}
	}
	return utf8.RuneCountInString(strings.TrimSpace(t)) >= minConfidentLength
}
