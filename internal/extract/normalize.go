package extract

import "strings"

var punctuation = strings.NewReplacer(
	"’", "'",
	"•", "-",
)

// Normalize folds typographic apostrophes and bullets to ASCII and collapses
// every whitespace run, newlines included, to a single space.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(punctuation.Replace(s)), " ")
}
