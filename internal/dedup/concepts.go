package dedup

import (
	"strings"
	"unicode"
)

var metricKeywords = map[string]struct{}{
	"count": {}, "number": {}, "total": {}, "time": {}, "hours": {},
	"minutes": {}, "views": {}, "plays": {}, "players": {}, "rating": {},
	"score": {}, "votes": {}, "length": {}, "playtime": {}, "copies": {},
}

var completionWords = map[string]struct{}{
	"finish": {}, "finished": {}, "complete": {}, "completed": {},
	"completion": {}, "beat": {}, "beaten": {},
}

var comparisonWords = map[string]struct{}{
	"vs": {}, "versus": {}, "more": {}, "fewer": {}, "higher": {},
	"lower": {}, "compare": {}, "compared": {}, "between": {},
}

var temporalWords = map[string]struct{}{
	"first": {}, "last": {}, "latest": {}, "newest": {}, "oldest": {},
	"recent": {}, "recently": {}, "year": {}, "month": {}, "week": {}, "ever": {},
}

var superlativeWords = map[string]struct{}{
	"most": {}, "least": {}, "highest": {}, "lowest": {}, "best": {},
	"worst": {}, "top": {}, "bottom": {}, "longest": {}, "shortest": {},
}

// nonEntities are capitalized tokens that never denote a named entity in
// question text (sentence starters, interrogatives, common scaffolding).
var nonEntities = map[string]struct{}{
	"the": {}, "what": {}, "which": {}, "who": {}, "when": {}, "where": {},
	"why": {}, "how": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"did": {}, "does": {}, "do": {}, "a": {}, "an": {}, "of": {},
	"in": {}, "on": {}, "name": {}, "if": {},
}

// ExtractConcepts reduces question text to a concept set: metric keywords,
// one flag each for completion/comparison/temporal/superlative language,
// and capitalized entity tokens.
func ExtractConcepts(text string) map[string]struct{} {
	concepts := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		trimmed := strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)

		if _, ok := metricKeywords[lower]; ok {
			concepts["metric:"+lower] = struct{}{}
		}
		if _, ok := completionWords[lower]; ok {
			concepts["completion"] = struct{}{}
		}
		if _, ok := comparisonWords[lower]; ok {
			concepts["comparison"] = struct{}{}
		}
		if _, ok := temporalWords[lower]; ok {
			concepts["temporal"] = struct{}{}
		}
		if _, ok := superlativeWords[lower]; ok {
			concepts["superlative"] = struct{}{}
		}

		if unicode.IsUpper([]rune(trimmed)[0]) {
			if _, skip := nonEntities[lower]; !skip {
				concepts["entity:"+lower] = struct{}{}
			}
		}
	}
	return concepts
}

// Jaccard computes set overlap in [0,1]; two empty sets share nothing.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
