package match

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Ratio returns a similarity score in [0,1] derived from edit distance.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	return 1.0 - float64(dist)/float64(longest)
}

// WordOverlap returns the share of words from reference that also appear
// in candidate.
func WordOverlap(candidate, reference string) float64 {
	refWords := strings.Fields(reference)
	if len(refWords) == 0 {
		return 0.0
	}
	candSet := make(map[string]struct{})
	for _, w := range strings.Fields(candidate) {
		candSet[w] = struct{}{}
	}
	hits := 0
	for _, w := range refWords {
		if _, ok := candSet[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(refWords))
}

// ExtractNumbers pulls every numeric literal out of s.
func ExtractNumbers(s string) []float64 {
	matches := numberPattern.FindAllString(s, -1)
	nums := make([]float64, 0, len(matches))
	for _, m := range matches {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			nums = append(nums, v)
		}
	}
	return nums
}
