// Package filter keeps relevant items and collapses duplicates.
package filter

import (
	model "github.com/okian/compliance-radar/internal/domain/model"
)

// Relevant returns the items that matched at least one vertical and at least
// one compliance cluster, in input order.
func Relevant(items []model.NewsItem) []model.NewsItem {
	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		if it.Relevant() {
			out = append(out, it)
		}
	}
	return out
}

// Deduplicate collapses items sharing an identity. The highest score wins;
// on equal scores the first one seen is kept. Output follows the order in
// which each identity was first seen.
func Deduplicate(items []model.NewsItem) []model.NewsItem {
	index := make(map[string]int, len(items)) // identity -> position in out
	out := make([]model.NewsItem, 0, len(items))
	for _, it := range items {
		key := it.Identity()
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, it)
			continue
		}
		if it.Score() > out[pos].Score() {
			out[pos] = it
		}
	}
	return out
}

// Apply runs Relevant then Deduplicate.
func Apply(items []model.NewsItem) []model.NewsItem {
	return Deduplicate(Relevant(items))
}
