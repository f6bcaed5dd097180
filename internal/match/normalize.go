package match

import (
	"strings"
	"unicode"
)

// abbreviations expands common community shorthand to the full title or
// phrase before comparison. Keys and values are lowercase.
var abbreviations = map[string]string{
	"gta":  "grand theft auto",
	"hl":   "half life",
	"hl2":  "half life 2",
	"botw": "breath of the wild",
	"totk": "tears of the kingdom",
	"gow":  "god of war",
	"rdr":  "red dead redemption",
	"rdr2": "red dead redemption 2",
	"cod":  "call of duty",
	"ac":   "assassins creed",
	"tf2":  "team fortress 2",
	"wow":  "world of warcraft",
	"ff":   "final fantasy",
	"ff7":  "final fantasy 7",
	"oot":  "ocarina of time",
	"dlc":  "downloadable content",
	"rpg":  "role playing game",
	"fps":  "first person shooter",
	"mc":   "minecraft",
	"lol":  "league of legends",
	"sm64": "super mario 64",
	"dkc":  "donkey kong country",
}

// codeTable maps single-letter answer codes to their spelled-out value.
// Consulted only by the dedicated cascade step, never during normalization.
var codeTable = map[string]string{
	"r": "red",
	"g": "green",
	"b": "blue",
	"y": "yellow",
	"o": "orange",
	"p": "purple",
	"w": "white",
	"k": "black",
}

var fillerWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "to": {}, "i": {}, "think": {}, "maybe": {},
	"probably": {}, "approximately": {}, "about": {}, "roughly": {},
	"around": {}, "like": {}, "umm": {}, "uh": {},
}

var questionWords = map[string]struct{}{
	"what": {}, "which": {}, "who": {}, "whom": {}, "when": {},
	"where": {}, "why": {}, "how": {}, "many": {}, "much": {},
	"are": {}, "was": {}, "were": {}, "did": {}, "does": {}, "do": {},
	"has": {}, "have": {}, "can": {}, "name": {},
}

// stripPunct lowercases s, drops apostrophes, and replaces every other
// non-alphanumeric rune with a space so token boundaries survive hyphens.
func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			// "it's" becomes "its", not "it s"
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// NormalizeAnswer prepares an answer string for comparison: punctuation
// stripped, abbreviations expanded, filler words dropped.
func NormalizeAnswer(s string) string {
	tokens := strings.Fields(stripPunct(s))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			out = append(out, strings.Fields(full)...)
			continue
		}
		if _, filler := fillerWords[tok]; filler {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// NormalizeQuestion prepares question text for similarity checks by also
// dropping interrogative scaffolding.
func NormalizeQuestion(s string) string {
	tokens := strings.Fields(stripPunct(s))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, qw := questionWords[tok]; qw {
			continue
		}
		if _, filler := fillerWords[tok]; filler {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// ExpandCode resolves a single-letter code to its full value, or returns
// the input unchanged.
func ExpandCode(s string) string {
	if full, ok := codeTable[strings.ToLower(strings.TrimSpace(s))]; ok {
		return full
	}
	return strings.ToLower(strings.TrimSpace(s))
}
