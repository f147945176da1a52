package search

import (
	"strings"

	"github.com/fanfiq/fanfiq/pkg/canonical"
)

const maxQueryLength = 100

// likeEscape is the escape character declared on every LIKE predicate.
const likeEscape = "!"

// normalizeQuery folds user input the same way search_text is folded and cuts
// it to maxQueryLength runes.
func normalizeQuery(input string) string {
	input = strings.TrimSpace(input)
	if r := []rune(input); len(r) > maxQueryLength {
		input = string(r[:maxQueryLength])
	}
	return strings.TrimSpace(canonical.Fold(input))
}

// containsPattern turns user input into a LIKE pattern matching it anywhere
// in a folded text column. LIKE wildcards in the input are escaped so they
// match literally. An empty result means there is nothing to search for.
func containsPattern(input string) string {
	folded := normalizeQuery(input)
	if folded == "" {
		return ""
	}
	return "%" + escapeLike(folded) + "%"
}

// prefixPattern is containsPattern anchored at the start, for autocomplete.
func prefixPattern(input string) string {
	pattern := containsPattern(input)
	if pattern == "" {
		return ""
	}
	return strings.TrimPrefix(pattern, "%")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	)
	return r.Replace(s)
}
