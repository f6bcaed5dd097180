package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateExactIsCaseInsensitive(t *testing.T) {
	score, kind := Evaluate("Half-Life 2", "HALF-LIFE 2")
	assert.Equal(t, 1.0, score)
	assert.Equal(t, MatchExact, kind)

	// Symmetric under case changes.
	reverse, _ := Evaluate("HALF-LIFE 2", "Half-Life 2")
	assert.Equal(t, score, reverse)
}

func TestEvaluateAbbreviationExpansion(t *testing.T) {
	score, kind := Evaluate("GTA", "Grand Theft Auto")
	assert.Equal(t, 1.0, score)
	assert.Equal(t, MatchNormalized, kind)
}

func TestEvaluateNumericWithFiller(t *testing.T) {
	score, kind := Evaluate("aproximately 42", "42")
	assert.Equal(t, 1.0, score)
	assert.Equal(t, MatchNumeric, kind)
}

func TestEvaluateNumericTolerance(t *testing.T) {
	// 5% of 100 is 5, so 103 is within tolerance but not exact.
	score, kind := Evaluate("103", "100")
	assert.Equal(t, 0.8, score)
	assert.Equal(t, MatchNumericClose, kind)

	// Small values must match exactly.
	score, _ = Evaluate("6", "5")
	assert.Equal(t, 0.0, score)
}

func TestEvaluateFuzzyCloseIsCloseNotCorrect(t *testing.T) {
	score, kind := Evaluate("porta", "portal")
	assert.Equal(t, 0.8, score)
	assert.Equal(t, MatchFuzzyClose, kind)
	assert.False(t, IsCorrect(score))
	assert.True(t, IsClose(score))
}

func TestEvaluateWordOverlap(t *testing.T) {
	score, kind := Evaluate("zelda breath wild legend extra", "Legend of Zelda Breath Wild")
	assert.Equal(t, 1.0, score)
	assert.Equal(t, MatchWordOverlap, kind)

	// Three of four reference words present is partial credit only.
	score, kind = Evaluate("breath wild zelda", "The Legend of Zelda Breath of the Wild")
	assert.Equal(t, 0.75, score)
	assert.Equal(t, MatchWordPartial, kind)
}

func TestEvaluateColourCode(t *testing.T) {
	score, kind := Evaluate("r", "Red")
	assert.Equal(t, 1.0, score)
	assert.Equal(t, MatchCode, kind)
}

func TestEvaluateDiagnosticNeverCorrect(t *testing.T) {
	score, kind := Evaluate("halo infinite", "hollow knight")
	if kind == MatchDiagnostic {
		assert.Less(t, score, 0.70)
		assert.False(t, IsCorrect(score))
		assert.False(t, IsClose(score))
	} else {
		assert.Equal(t, MatchNone, kind)
	}
}

func TestEvaluateNoMatch(t *testing.T) {
	score, kind := Evaluate("x", "completely unrelated answer")
	assert.Equal(t, 0.0, score)
	assert.Equal(t, MatchNone, kind)
}

func TestEvaluateDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		score, kind := Evaluate("team fortress 2", "Team Fortress II")
		again, kindAgain := Evaluate("team fortress 2", "Team Fortress II")
		assert.Equal(t, score, again)
		assert.Equal(t, kind, kindAgain)
	}
}
