// Package ranking orders classified items by relevance.
package ranking

import (
	"sort"

	model "github.com/okian/compliance-radar/internal/domain/model"
)

// Rank returns a new slice ordered by score descending, then publication
// time descending. Undated items sort below any dated item with the same
// score. Fully tied items keep their input order. A positive limit keeps
// only the first limit items.
func Rank(items []model.NewsItem, limit int) []model.NewsItem {
	out := make([]model.NewsItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[j], out[i])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Less reports whether a ranks strictly below b.
func Less(a, b model.NewsItem) bool {
	if sa, sb := a.Score(), b.Score(); sa != sb {
		return sa < sb
	}
	switch {
	case !a.HasPublished() && !b.HasPublished():
		return false
	case !a.HasPublished():
		return true
	case !b.HasPublished():
		return false
	}
	return a.Published.Before(b.Published)
}
