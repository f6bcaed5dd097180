package match

import (
	"math"
	"strings"
)

// MatchKind labels which cascade step decided the score.
type MatchKind string

const (
	MatchExact        MatchKind = "exact"
	MatchNormalized   MatchKind = "normalized"
	MatchFuzzyHigh    MatchKind = "fuzzy-high"
	MatchFuzzyClose   MatchKind = "fuzzy-close"
	MatchWordOverlap  MatchKind = "word-overlap"
	MatchWordPartial  MatchKind = "word-partial"
	MatchNumeric      MatchKind = "numeric"
	MatchNumericClose MatchKind = "numeric-close"
	MatchCode         MatchKind = "code"
	MatchDiagnostic   MatchKind = "diagnostic"
	MatchNone         MatchKind = "no-match"
)

const (
	fuzzyHighThreshold  = 0.90
	fuzzyCloseThreshold = 0.70
	overlapFull         = 0.80
	overlapPartial      = 0.60
	diagnosticFloor     = 0.30
)

// Evaluate grades a submitted answer against the correct one. The cascade
// is ordered strictest-first and the first matching step wins. A score of
// 1.0 counts as correct, anything in [0.70, 1.0) as close.
func Evaluate(userText, correctText string) (float64, MatchKind) {
	user := strings.TrimSpace(userText)
	correct := strings.TrimSpace(correctText)
	if user == "" || correct == "" {
		return 0.0, MatchNone
	}

	if strings.EqualFold(user, correct) {
		return 1.0, MatchExact
	}

	normUser := NormalizeAnswer(user)
	normCorrect := NormalizeAnswer(correct)
	if normUser != "" && normUser == normCorrect {
		return 1.0, MatchNormalized
	}

	ratio := Ratio(normUser, normCorrect)
	if ratio >= fuzzyHighThreshold {
		return 1.0, MatchFuzzyHigh
	}
	if ratio >= fuzzyCloseThreshold {
		return 0.8, MatchFuzzyClose
	}

	if len(strings.Fields(normCorrect)) > 1 {
		overlap := WordOverlap(normUser, normCorrect)
		if overlap >= overlapFull {
			return 1.0, MatchWordOverlap
		}
		if overlap >= overlapPartial {
			return 0.75, MatchWordPartial
		}
	}

	userNums := ExtractNumbers(user)
	correctNums := ExtractNumbers(correct)
	if len(userNums) > 0 && len(correctNums) > 0 {
		if score, kind, ok := compareNumbers(userNums[0], correctNums[0]); ok {
			return score, kind
		}
	}

	if ExpandCode(user) == strings.ToLower(correct) || ExpandCode(correct) == strings.ToLower(user) {
		return 1.0, MatchCode
	}

	if ratio >= diagnosticFloor {
		// Diagnostic only: never counted as correct or close by callers.
		return ratio, MatchDiagnostic
	}
	return 0.0, MatchNone
}

// compareNumbers applies the numeric tolerance rule: values over 20 get a
// tolerance of max(1, 5% of the correct value), smaller ones must match
// exactly.
func compareNumbers(user, correct float64) (float64, MatchKind, bool) {
	if user == correct {
		return 1.0, MatchNumeric, true
	}
	if math.Abs(correct) > 20 {
		tolerance := math.Max(1, math.Abs(correct)*0.05)
		if math.Abs(user-correct) <= tolerance {
			return 0.8, MatchNumericClose, true
		}
	}
	return 0, MatchNone, false
}

// IsCorrect reports whether a cascade score counts as a correct answer.
func IsCorrect(score float64) bool { return score >= 1.0 }

// IsClose reports whether a score is acknowledged as near-correct.
func IsClose(score float64) bool { return score >= fuzzyCloseThreshold && score < 1.0 }
