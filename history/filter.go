package history

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Filter keeps the entries whose title or key fuzzily contains query. An empty query keeps everything.
func Filter(entries []*Entry, query string) []*Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	return lo.Filter(entries, func(entry *Entry, _ int) bool {
		return fuzzy.MatchFold(query, entry.Title) || fuzzy.MatchFold(query, entry.Key)
	})
}
