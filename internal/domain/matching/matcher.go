// Package matching classifies news items against keyword taxonomies.
package matching

import (
	"strings"

	model "github.com/okian/compliance-radar/internal/domain/model"
)

// compiledCluster is a cluster with its keywords lower-cased once.
type compiledCluster struct {
	key      string
	keywords []string // original spelling, reported in hits
	needles  []string // lower-cased, matched against text
}

// Matcher applies a TopicsConfig to items. It is immutable after New and
// safe for concurrent use.
type Matcher struct {
	verticals  []compiledCluster
	compliance []compiledCluster
	topics     model.TopicsConfig
}

// New compiles topics into a Matcher.
func New(topics model.TopicsConfig) *Matcher {
	return &Matcher{
		verticals:  compile(topics.Verticals),
		compliance: compile(topics.Compliance),
		topics:     topics,
	}
}

func compile(t model.Taxonomy) []compiledCluster {
	clusters := t.Clusters()
	out := make([]compiledCluster, 0, len(clusters))
	for _, c := range clusters {
		cc := compiledCluster{key: c.Key}
		for _, kw := range c.Keywords {
			needle := strings.ToLower(strings.TrimSpace(kw))
			if needle == "" {
				continue
			}
			cc.keywords = append(cc.keywords, kw)
			cc.needles = append(cc.needles, needle)
		}
		out = append(out, cc)
	}
	return out
}

// Classify returns a classified copy of item. Any previous classification on
// item is discarded, so classifying twice yields the same result as once.
// hints name vertical clusters the item's source is presumed to cover.
func (m *Matcher) Classify(item model.NewsItem, hints []string) model.NewsItem {
	out := item.Clone()
	out.VerticalMatches = []string{}
	out.ComplianceMatches = []string{}
	out.KeywordHits = model.KeywordHits{
		model.TaxonomyVerticals:  {},
		model.TaxonomyCompliance: {},
	}

	text := SearchText(item)
	out.VerticalMatches = match(text, m.verticals, out.KeywordHits[model.TaxonomyVerticals])
	out.ComplianceMatches = match(text, m.compliance, out.KeywordHits[model.TaxonomyCompliance])

	// Hints only ever add vertical matches.
	hits := out.KeywordHits[model.TaxonomyVerticals]
	for _, hint := range hints {
		if !m.topics.Verticals.Has(hint) {
			continue
		}
		if _, matched := hits[hint]; matched {
			continue
		}
		out.VerticalMatches = append(out.VerticalMatches, hint)
		hits[hint] = []string{}
	}
	return out
}

func match(text string, clusters []compiledCluster, hits map[string][]string) []string {
	matched := []string{}
	for _, c := range clusters {
		var found []string
		for i, needle := range c.needles {
			if strings.Contains(text, needle) {
				found = append(found, c.keywords[i])
			}
		}
		if len(found) == 0 {
			continue
		}
		matched = append(matched, c.key)
		hits[c.key] = found
	}
	return matched
}

// SearchText is the normalized text an item is matched against: title,
// summary and categories joined, lower-cased, whitespace collapsed.
func SearchText(item model.NewsItem) string {
	parts := []string{item.Title, item.Summary, strings.Join(item.RawCategories, " ")}
	return strings.Join(strings.Fields(strings.ToLower(strings.Join(parts, " "))), " ")
}

// Classify is a convenience wrapper for one-off classification.
func Classify(item model.NewsItem, topics model.TopicsConfig, hints []string) model.NewsItem {
	return New(topics).Classify(item, hints)
}
