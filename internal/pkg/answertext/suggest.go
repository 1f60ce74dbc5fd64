package answertext

import (
	"math/rand"
	"strings"
)

// NormalizeQuestion is the key used for "already asked" bookkeeping.
func NormalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// PickSuggestion chooses a follow-up question from pool, skipping the question
// being answered and anything already asked. It returns false when nothing is left.
func PickSuggestion(pool []string, asked map[string]struct{}, avoid string) (string, bool) {
	avoidKey := NormalizeQuestion(avoid)
	candidates := make([]string, 0, len(pool))
	for _, s := range pool {
		key := NormalizeQuestion(s)
		if key == "" || key == avoidKey {
			continue
		}
		if _, seen := asked[key]; seen {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rand.Intn(len(candidates))], true
}
