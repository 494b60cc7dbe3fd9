package ranking_test

import (
	"testing"
	"time"

	model "github.com/okian/compliance-radar/internal/domain/model"
	ranking "github.com/okian/compliance-radar/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func scored(title string, score int, published time.Time) model.NewsItem {
	v := make([]string, 0, score)
	for i := 0; i < score-1; i++ {
		v = append(v, "v")
	}
	return model.NewsItem{
		Title:             title,
		Published:         published,
		VerticalMatches:   v,
		ComplianceMatches: []string{"c"},
	}
}

func titles(items []model.NewsItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestRank(t *testing.T) {
	Convey("Given items with varying score and recency", t, func() {
		items := []model.NewsItem{
			scored("low-new", 2, base.Add(48*time.Hour)),
			scored("high-old", 3, base),
			scored("high-new", 3, base.Add(24*time.Hour)),
			scored("high-undated", 3, time.Time{}),
			scored("low-undated", 2, time.Time{}),
		}

		Convey("When ranking without a limit", func() {
			out := ranking.Rank(items, 0)

			Convey("Then score dominates and recency breaks ties", func() {
				So(titles(out), ShouldResemble, []string{"high-new", "high-old", "high-undated", "low-new", "low-undated"})
			})

			Convey("Then adjacent pairs satisfy the ordering", func() {
				for i := 1; i < len(out); i++ {
					So(ranking.Less(out[i-1], out[i]), ShouldBeFalse)
				}
			})

			Convey("Then the input slice is not reordered", func() {
				So(items[0].Title, ShouldEqual, "low-new")
			})
		})

		Convey("When ranking with a limit of 2", func() {
			out := ranking.Rank(items, 2)

			Convey("Then the two highest ranked items are kept in order", func() {
				So(titles(out), ShouldResemble, []string{"high-new", "high-old"})
			})
		})

		Convey("When the limit exceeds the item count", func() {
			So(len(ranking.Rank(items, 50)), ShouldEqual, 5)
		})
	})

	Convey("Given fully tied items", t, func() {
		items := []model.NewsItem{
			scored("a", 2, base),
			scored("b", 2, base),
			scored("c", 2, time.Time{}),
			scored("d", 2, time.Time{}),
		}

		Convey("Then insertion order is preserved within ties", func() {
			So(titles(ranking.Rank(items, 0)), ShouldResemble, []string{"a", "b", "c", "d"})
		})
	})

	Convey("Given five relevant items and a limit of 2", t, func() {
		items := []model.NewsItem{
			scored("one", 2, base),
			scored("two", 4, base),
			scored("three", 3, base),
			scored("four", 2, base.Add(time.Hour)),
			scored("five", 5, time.Time{}),
		}

		Convey("Then exactly the two highest ranked items are returned", func() {
			So(titles(ranking.Rank(items, 2)), ShouldResemble, []string{"five", "two"})
		})
	})
}
