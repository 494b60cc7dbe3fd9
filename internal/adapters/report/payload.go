package report

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	model "github.com/okian/compliance-radar/internal/domain/model"
	"github.com/okian/compliance-radar/internal/domain/ranking"
)

// Payload is the structured document consumed by the static site and
// publishers.
type Payload struct {
	GeneratedAt string    `json:"generated_at"`
	RunID       string    `json:"run_id"`
	Summary     Summary   `json:"summary"`
	Sections    []Section `json:"sections"`
}

// Summary holds run-wide totals.
type Summary struct {
	TotalItems       int      `json:"total_items"`
	Sources          []string `json:"sources"`
	VerticalCounts   []Count  `json:"vertical_counts"`
	ComplianceCounts []Count  `json:"compliance_counts"`
}

// Ref names a cluster by key and display label.
type Ref struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Count is the number of items matching one cluster.
type Count struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Section is one vertical and its compliance segments.
type Section struct {
	Vertical Ref       `json:"vertical"`
	Segments []Segment `json:"segments"`
}

// Segment is the items of one vertical × compliance pair.
type Segment struct {
	Compliance Ref    `json:"compliance"`
	Items      []Item `json:"items"`
}

// Item is the serialized form of a news item.
type Item struct {
	Title         string            `json:"title"`
	Link          string            `json:"link"`
	Source        string            `json:"source"`
	Published     *string           `json:"published"`
	Summary       string            `json:"summary"`
	Verticals     []Ref             `json:"verticals"`
	Compliance    []Ref             `json:"compliance"`
	RawCategories []string          `json:"raw_categories"`
	KeywordHits   model.KeywordHits `json:"keyword_hits"`
	Score         int               `json:"score"`
}

// NewPayload builds the payload. Sections are sorted by vertical key, then
// compliance key; counts by count descending, then key.
func NewPayload(items []model.NewsItem, topics model.TopicsConfig, generatedAt time.Time, runID string) Payload {
	ranked := ranking.Rank(items, 0)

	vertical := map[string]int{}
	compliance := map[string]int{}
	for _, it := range ranked {
		for _, k := range keysOrUnclassified(it.VerticalMatches) {
			vertical[k]++
		}
		for _, k := range keysOrUnclassified(it.ComplianceMatches) {
			compliance[k]++
		}
	}

	g := group(ranked)
	sort.Slice(g.sections, func(i, j int) bool { return g.sections[i].key < g.sections[j].key })
	sections := make([]Section, 0, len(g.sections))
	for _, sec := range g.sections {
		sort.Slice(sec.segments, func(i, j int) bool { return sec.segments[i].key < sec.segments[j].key })
		out := Section{
			Vertical: Ref{Key: sec.key, Label: topics.Verticals.Label(sec.key)},
			Segments: make([]Segment, 0, len(sec.segments)),
		}
		for _, seg := range sec.segments {
			s := Segment{
				Compliance: Ref{Key: seg.key, Label: topics.Compliance.Label(seg.key)},
				Items:      make([]Item, 0, len(seg.items)),
			}
			for _, it := range seg.items {
				s.Items = append(s.Items, serialize(it, topics))
			}
			out.Segments = append(out.Segments, s)
		}
		sections = append(sections, out)
	}

	return Payload{
		GeneratedAt: generatedAt.Format(time.RFC3339),
		RunID:       runID,
		Summary: Summary{
			TotalItems:       len(ranked),
			Sources:          distinctSources(ranked),
			VerticalCounts:   counts(vertical, topics.Verticals),
			ComplianceCounts: counts(compliance, topics.Compliance),
		},
		Sections: sections,
	}
}

// JSON encodes p indented, without HTML escaping.
func (p Payload) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func serialize(it model.NewsItem, topics model.TopicsConfig) Item {
	out := Item{
		Title:         it.Title,
		Link:          it.Link,
		Source:        it.Source,
		Summary:       it.Summary,
		Verticals:     refs(keysOrUnclassified(it.VerticalMatches), topics.Verticals),
		Compliance:    refs(keysOrUnclassified(it.ComplianceMatches), topics.Compliance),
		RawCategories: append([]string{}, it.RawCategories...),
		KeywordHits:   it.KeywordHits.Clone(),
		Score:         it.Score(),
	}
	if it.HasPublished() {
		s := it.Published.Format(time.RFC3339)
		out.Published = &s
	}
	if out.KeywordHits == nil {
		out.KeywordHits = model.KeywordHits{}
	}
	return out
}

func refs(keys []string, t model.Taxonomy) []Ref {
	out := make([]Ref, 0, len(keys))
	for _, k := range keys {
		out = append(out, Ref{Key: k, Label: t.Label(k)})
	}
	return out
}

func counts(m map[string]int, t model.Taxonomy) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, Label: t.Label(k), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
