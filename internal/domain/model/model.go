// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Taxonomy names used as keys of KeywordHits.
const (
	TaxonomyVerticals  = "verticals"
	TaxonomyCompliance = "compliance"
)

// Placeholders substituted for absent item fields.
const (
	DefaultTitle  = "Untitled"
	UnknownSource = "Unknown"
)

// ErrDuplicateCluster is returned when a taxonomy is built with a repeated key.
var ErrDuplicateCluster = errors.New("duplicate cluster key")

// Source is a named feed origin to poll.
type Source struct {
	Name   string
	URL    string
	Topics []string // vertical cluster keys presumed relevant for every item
}

// KeywordCluster is a named group of keywords under one taxonomy.
type KeywordCluster struct {
	Key      string
	Label    string
	Keywords []string
}

// Taxonomy is an ordered, immutable set of clusters addressed by key.
// Iteration order is the order the clusters were configured in.
type Taxonomy struct {
	clusters []KeywordCluster
	index    map[string]int
}

// NewTaxonomy builds a taxonomy from clusters in the given order.
func NewTaxonomy(clusters ...KeywordCluster) (Taxonomy, error) {
	t := Taxonomy{
		clusters: make([]KeywordCluster, 0, len(clusters)),
		index:    make(map[string]int, len(clusters)),
	}
	for _, c := range clusters {
		if _, ok := t.index[c.Key]; ok {
			return Taxonomy{}, fmt.Errorf("%w: %s", ErrDuplicateCluster, c.Key)
		}
		c.Keywords = append([]string(nil), c.Keywords...)
		t.index[c.Key] = len(t.clusters)
		t.clusters = append(t.clusters, c)
	}
	return t, nil
}

// MustTaxonomy is NewTaxonomy for static tables; it panics on error.
func MustTaxonomy(clusters ...KeywordCluster) Taxonomy {
	t, err := NewTaxonomy(clusters...)
	if err != nil {
		panic(err)
	}
	return t
}

// Clusters returns the clusters in configured order.
func (t Taxonomy) Clusters() []KeywordCluster {
	out := make([]KeywordCluster, len(t.clusters))
	copy(out, t.clusters)
	return out
}

// Get returns the cluster stored under key.
func (t Taxonomy) Get(key string) (KeywordCluster, bool) {
	i, ok := t.index[key]
	if !ok {
		return KeywordCluster{}, false
	}
	return t.clusters[i], true
}

// Has reports whether key names a cluster.
func (t Taxonomy) Has(key string) bool {
	_, ok := t.index[key]
	return ok
}

// Len returns the number of clusters.
func (t Taxonomy) Len() int { return len(t.clusters) }

// Label returns the display label for key. Unknown keys fall back to
// DefaultLabel.
func (t Taxonomy) Label(key string) string {
	if c, ok := t.Get(key); ok && c.Label != "" {
		return c.Label
	}
	if key == "unclassified" {
		return "Unclassified"
	}
	return DefaultLabel(key)
}

// DefaultLabel derives a display label from a cluster key:
// "data_privacy" becomes "Data Privacy".
func DefaultLabel(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// TopicsConfig holds the two independent taxonomies.
type TopicsConfig struct {
	Verticals  Taxonomy
	Compliance Taxonomy
}

// KeywordHits maps taxonomy name to cluster key to the keywords that
// triggered the match. Hint-only matches carry an empty list.
type KeywordHits map[string]map[string][]string

// Clone returns a deep copy.
func (h KeywordHits) Clone() KeywordHits {
	if h == nil {
		return nil
	}
	out := make(KeywordHits, len(h))
	for taxonomy, clusters := range h {
		inner := make(map[string][]string, len(clusters))
		for key, kws := range clusters {
			inner[key] = append([]string{}, kws...)
		}
		out[taxonomy] = inner
	}
	return out
}

// NewsItem is one normalized article.
type NewsItem struct {
	Source        string
	Title         string
	Link          string
	Published     time.Time // zero when the feed gave no usable date
	Summary       string
	RawCategories []string

	VerticalMatches   []string
	ComplianceMatches []string
	KeywordHits       KeywordHits
}

// NewNewsItem returns a fully populated, unclassified item. Blank title and
// source are replaced by placeholders.
func NewNewsItem(source, title, link, summary string, published time.Time, categories []string) NewsItem {
	source = strings.TrimSpace(source)
	if source == "" {
		source = UnknownSource
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	cats := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	return NewsItem{
		Source:            source,
		Title:             title,
		Link:              strings.TrimSpace(link),
		Published:         published,
		Summary:           strings.TrimSpace(summary),
		RawCategories:     cats,
		VerticalMatches:   []string{},
		ComplianceMatches: []string{},
		KeywordHits:       KeywordHits{},
	}
}

// Score is the number of matched clusters across both taxonomies.
func (n NewsItem) Score() int {
	return len(n.VerticalMatches) + len(n.ComplianceMatches)
}

// Identity is the deduplication key: the link when present, else the title.
func (n NewsItem) Identity() string {
	if n.Link != "" {
		return n.Link
	}
	return n.Title
}

// HasPublished reports whether the item carries a publication timestamp.
func (n NewsItem) HasPublished() bool { return !n.Published.IsZero() }

// Relevant reports whether the item matched both taxonomies.
func (n NewsItem) Relevant() bool {
	return len(n.VerticalMatches) > 0 && len(n.ComplianceMatches) > 0
}

// Clone returns a copy that shares no slices or maps with n.
func (n NewsItem) Clone() NewsItem {
	c := n
	c.RawCategories = append([]string{}, n.RawCategories...)
	c.VerticalMatches = append([]string{}, n.VerticalMatches...)
	c.ComplianceMatches = append([]string{}, n.ComplianceMatches...)
	c.KeywordHits = n.KeywordHits.Clone()
	return c
}
