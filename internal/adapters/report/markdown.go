// Package report renders ranked items as a Markdown briefing and a JSON payload.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	model "github.com/okian/compliance-radar/internal/domain/model"
	"github.com/okian/compliance-radar/internal/domain/ranking"
)

const (
	summaryWidth    = 98
	publishedLayout = "2006-01-02 15:04 MST"
	noItemsMessage  = "No new items matched the configured criteria."
	unknownDate     = "Unknown publication date"
)

// Markdown renders the briefing. Items are re-ranked, so callers may pass
// them in any order.
func Markdown(items []model.NewsItem, topics model.TopicsConfig, generatedAt time.Time) string {
	ranked := ranking.Rank(items, 0)

	var b strings.Builder
	fmt.Fprintf(&b, "# Compliance Intelligence Briefing - %s\n\n", generatedAt.Format(time.DateOnly))
	b.WriteString("## Snapshot\n")
	fmt.Fprintf(&b, "- Relevant items: %d\n", len(ranked))
	sources := distinctSources(ranked)
	if len(sources) == 0 {
		b.WriteString("- Sources scanned: None\n\n")
	} else {
		fmt.Fprintf(&b, "- Sources scanned: %s\n\n", strings.Join(sources, ", "))
	}

	if len(ranked) == 0 {
		b.WriteString(noItemsMessage + "\n")
		return b.String()
	}

	for _, sec := range group(ranked).sections {
		fmt.Fprintf(&b, "## %s\n", topics.Verticals.Label(sec.key))
		for _, seg := range sec.segments {
			fmt.Fprintf(&b, "### %s\n", topics.Compliance.Label(seg.key))
			for _, it := range seg.items {
				b.WriteString(formatItem(it, topics))
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), " \n") + "\n"
}

func formatItem(it model.NewsItem, topics model.TopicsConfig) string {
	lines := []string{
		fmt.Sprintf("**%s** (%s, %s)", it.Title, it.Source, formatPublished(it)),
		"Vertical focus: " + joinLabels(it.VerticalMatches, topics.Verticals),
		"Compliance lens: " + joinLabels(it.ComplianceMatches, topics.Compliance),
	}
	if it.Summary != "" {
		lines = append(lines, "Summary: "+wrap(it.Summary, summaryWidth))
	}
	if hits := formatKeywordHits(it, topics); hits != "" {
		lines = append(lines, "Keywords flagged: "+hits)
	}
	return "- " + strings.Join(lines, "\n  - ")
}

func formatPublished(it model.NewsItem) string {
	if !it.HasPublished() {
		return unknownDate
	}
	return it.Published.Format(publishedLayout)
}

// joinLabels uses the configured label, else the raw key.
func joinLabels(keys []string, t model.Taxonomy) string {
	if len(keys) == 0 {
		return "Unclassified"
	}
	labels := make([]string, 0, len(keys))
	for _, k := range keys {
		labels = append(labels, rawLabel(k, t))
	}
	return strings.Join(labels, ", ")
}

func rawLabel(key string, t model.Taxonomy) string {
	if c, ok := t.Get(key); ok && c.Label != "" {
		return c.Label
	}
	return key
}

// formatKeywordHits lists "label: kw, kw" per matched cluster, verticals
// first. Hint-only matches have no keywords and are skipped.
func formatKeywordHits(it model.NewsItem, topics model.TopicsConfig) string {
	var parts []string
	add := func(taxonomy string, keys []string, t model.Taxonomy) {
		for _, k := range keys {
			kws := uniqueSorted(it.KeywordHits[taxonomy][k])
			if len(kws) == 0 {
				continue
			}
			parts = append(parts, rawLabel(k, t)+": "+strings.Join(kws, ", "))
		}
	}
	add(model.TaxonomyVerticals, it.VerticalMatches, topics.Verticals)
	add(model.TaxonomyCompliance, it.ComplianceMatches, topics.Compliance)
	return strings.Join(parts, "; ")
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func distinctSources(items []model.NewsItem) []string {
	set := map[string]struct{}{}
	for _, it := range items {
		set[it.Source] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// wrap greedily fills words into lines of at most width runes. Whitespace
// runs collapse to one space; words longer than width are split.
func wrap(s string, width int) string {
	var lines []string
	var line []rune
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > 0 {
			switch {
			case len(line) == 0 && len(w) <= width:
				line, w = append(line, w...), nil
			case len(line) > 0 && len(line)+1+len(w) <= width:
				line = append(append(line, ' '), w...)
				w = nil
			case len(line) > 0:
				lines = append(lines, string(line))
				line = nil
			default:
				lines = append(lines, string(w[:width]))
				w = w[width:]
			}
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return strings.Join(lines, "\n")
}
