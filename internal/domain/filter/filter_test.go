package filter_test

import (
	"testing"

	filter "github.com/okian/compliance-radar/internal/domain/filter"
	model "github.com/okian/compliance-radar/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func classified(source, title, link string, verticals, compliance []string) model.NewsItem {
	return model.NewsItem{
		Source:            source,
		Title:             title,
		Link:              link,
		VerticalMatches:   verticals,
		ComplianceMatches: compliance,
	}
}

func TestRelevant(t *testing.T) {
	Convey("Given items with partial and full matches", t, func() {
		items := []model.NewsItem{
			classified("A", "both", "l1", []string{"finance"}, []string{"privacy"}),
			classified("A", "vertical only", "l2", []string{"finance"}, nil),
			classified("B", "compliance only", "l3", nil, []string{"privacy"}),
			classified("B", "none", "l4", nil, nil),
			classified("B", "both again", "l5", []string{"golf"}, []string{"aml"}),
		}

		Convey("When filtering for relevance", func() {
			out := filter.Relevant(items)

			Convey("Then only items matching both taxonomies survive in order", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].Title, ShouldEqual, "both")
				So(out[1].Title, ShouldEqual, "both again")
				for _, it := range out {
					So(len(it.VerticalMatches), ShouldBeGreaterThanOrEqualTo, 1)
					So(len(it.ComplianceMatches), ShouldBeGreaterThanOrEqualTo, 1)
				}
			})
		})

		Convey("When the input is empty", func() {
			So(filter.Relevant(nil), ShouldBeEmpty)
		})
	})
}

func TestDeduplicate(t *testing.T) {
	Convey("Given items sharing identities", t, func() {
		Convey("When a later duplicate scores higher", func() {
			items := []model.NewsItem{
				classified("A", "first", "https://x/1", []string{"finance"}, []string{"privacy"}),
				classified("B", "other", "https://x/2", []string{"finance"}, []string{"privacy"}),
				classified("C", "second", "https://x/1", []string{"finance", "golf"}, []string{"privacy"}),
			}
			out := filter.Deduplicate(items)

			Convey("Then the higher scoring copy replaces it at the first-seen position", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].Title, ShouldEqual, "second")
				So(out[0].Source, ShouldEqual, "C")
				So(out[1].Title, ShouldEqual, "other")
			})
		})

		Convey("When duplicates tie on score", func() {
			items := []model.NewsItem{
				classified("A", "first", "https://x/1", []string{"finance"}, []string{"privacy"}),
				classified("B", "second", "https://x/1", []string{"golf"}, []string{"aml"}),
			}
			out := filter.Deduplicate(items)

			Convey("Then the first encountered wins", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].Source, ShouldEqual, "A")
			})
		})

		Convey("When a later duplicate scores lower", func() {
			items := []model.NewsItem{
				classified("A", "rich", "https://x/1", []string{"finance", "golf"}, []string{"privacy"}),
				classified("B", "poor", "https://x/1", []string{"finance"}, []string{"privacy"}),
			}
			out := filter.Deduplicate(items)

			Convey("Then the earlier higher scoring copy stays", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].Title, ShouldEqual, "rich")
			})
		})

		Convey("When items have no link", func() {
			items := []model.NewsItem{
				classified("A", "Same headline", "", []string{"finance"}, []string{"privacy"}),
				classified("B", "Same headline", "", []string{"finance"}, []string{"privacy"}),
				classified("B", "Different", "", []string{"finance"}, []string{"privacy"}),
			}
			out := filter.Deduplicate(items)

			Convey("Then the title is the identity across sources", func() {
				So(len(out), ShouldEqual, 2)
				So(out[0].Source, ShouldEqual, "A")
				So(out[1].Title, ShouldEqual, "Different")
			})
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a mix of irrelevant and duplicate items", t, func() {
		items := []model.NewsItem{
			classified("A", "irrelevant", "https://x/0", []string{"finance"}, nil),
			classified("A", "keep", "https://x/1", []string{"finance"}, []string{"privacy"}),
			classified("B", "dup", "https://x/1", []string{"finance"}, []string{"privacy"}),
		}

		Convey("Then Apply filters then deduplicates", func() {
			out := filter.Apply(items)
			So(len(out), ShouldEqual, 1)
			So(out[0].Title, ShouldEqual, "keep")
		})
	})
}
