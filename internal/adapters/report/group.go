package report

import (
	model "github.com/okian/compliance-radar/internal/domain/model"
)

const unclassified = "unclassified"

// segment is the items sharing one (vertical, compliance) pair.
type segment struct {
	key   string
	items []model.NewsItem
}

// section is one vertical with its compliance segments in first-seen order.
type section struct {
	key      string
	segments []*segment
	index    map[string]*segment
}

// grouping buckets items by every vertical × compliance pair they carry.
// Items without matches land under "unclassified". Both levels keep
// first-appearance order.
type grouping struct {
	sections []*section
	index    map[string]*section
}

func group(items []model.NewsItem) *grouping {
	g := &grouping{index: map[string]*section{}}
	for _, it := range items {
		for _, v := range keysOrUnclassified(it.VerticalMatches) {
			sec, ok := g.index[v]
			if !ok {
				sec = &section{key: v, index: map[string]*segment{}}
				g.index[v] = sec
				g.sections = append(g.sections, sec)
			}
			for _, c := range keysOrUnclassified(it.ComplianceMatches) {
				seg, ok := sec.index[c]
				if !ok {
					seg = &segment{key: c}
					sec.index[c] = seg
					sec.segments = append(sec.segments, seg)
				}
				seg.items = append(seg.items, it)
			}
		}
	}
	return g
}

func keysOrUnclassified(keys []string) []string {
	if len(keys) == 0 {
		return []string{unclassified}
	}
	return keys
}
