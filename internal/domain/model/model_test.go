package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/compliance-radar/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTaxonomy(t *testing.T) {
	convey.Convey("Given a taxonomy built from ordered clusters", t, func() {
		tax, err := model.NewTaxonomy(
			model.KeywordCluster{Key: "finance", Label: "Finance", Keywords: []string{"bank"}},
			model.KeywordCluster{Key: "data_privacy", Keywords: []string{"gdpr"}},
		)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then clusters keep configured order", func() {
			clusters := tax.Clusters()
			convey.So(len(clusters), convey.ShouldEqual, 2)
			convey.So(clusters[0].Key, convey.ShouldEqual, "finance")
			convey.So(clusters[1].Key, convey.ShouldEqual, "data_privacy")
			convey.So(tax.Len(), convey.ShouldEqual, 2)
		})

		convey.Convey("Then lookups work by key", func() {
			c, ok := tax.Get("finance")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(c.Keywords, convey.ShouldResemble, []string{"bank"})
			convey.So(tax.Has("healthcare"), convey.ShouldBeFalse)
		})

		convey.Convey("Then labels fall back to the derived key label", func() {
			convey.So(tax.Label("finance"), convey.ShouldEqual, "Finance")
			convey.So(tax.Label("data_privacy"), convey.ShouldEqual, "Data Privacy")
			convey.So(tax.Label("unclassified"), convey.ShouldEqual, "Unclassified")
			convey.So(tax.Label("anti_money_laundering"), convey.ShouldEqual, "Anti Money Laundering")
		})

		convey.Convey("Then mutating the returned slice does not leak back", func() {
			clusters := tax.Clusters()
			clusters[0].Key = "changed"
			convey.So(tax.Clusters()[0].Key, convey.ShouldEqual, "finance")
		})
	})

	convey.Convey("Given clusters with a repeated key", t, func() {
		_, err := model.NewTaxonomy(
			model.KeywordCluster{Key: "finance"},
			model.KeywordCluster{Key: "finance"},
		)

		convey.Convey("Then construction fails", func() {
			convey.So(errors.Is(err, model.ErrDuplicateCluster), convey.ShouldBeTrue)
			convey.So(func() { model.MustTaxonomy(model.KeywordCluster{Key: "a"}, model.KeywordCluster{Key: "a"}) }, convey.ShouldPanic)
		})
	})
}

func TestNewsItem(t *testing.T) {
	convey.Convey("Given NewNewsItem with blank fields", t, func() {
		item := model.NewNewsItem("  ", "", " https://example.com/a ", " body ", time.Time{}, []string{" Banking ", ""})

		convey.Convey("Then placeholders and trimming are applied", func() {
			convey.So(item.Source, convey.ShouldEqual, model.UnknownSource)
			convey.So(item.Title, convey.ShouldEqual, model.DefaultTitle)
			convey.So(item.Link, convey.ShouldEqual, "https://example.com/a")
			convey.So(item.Summary, convey.ShouldEqual, "body")
			convey.So(item.RawCategories, convey.ShouldResemble, []string{"Banking"})
			convey.So(item.HasPublished(), convey.ShouldBeFalse)
			convey.So(item.Score(), convey.ShouldEqual, 0)
		})
	})

	convey.Convey("Given a classified item", t, func() {
		item := model.NewNewsItem("A", "Bank GDPR", "", "", time.Now(), nil)
		item.VerticalMatches = []string{"finance"}
		item.ComplianceMatches = []string{"privacy", "aml"}
		item.KeywordHits = model.KeywordHits{
			model.TaxonomyVerticals: {"finance": {"bank"}},
		}

		convey.Convey("Then score is the total match count", func() {
			convey.So(item.Score(), convey.ShouldEqual, 3)
			convey.So(item.Relevant(), convey.ShouldBeTrue)
		})

		convey.Convey("Then identity falls back to the title", func() {
			convey.So(item.Identity(), convey.ShouldEqual, "Bank GDPR")
			item.Link = "https://x/1"
			convey.So(item.Identity(), convey.ShouldEqual, "https://x/1")
		})

		convey.Convey("Then Clone shares nothing with the original", func() {
			c := item.Clone()
			c.VerticalMatches[0] = "changed"
			c.KeywordHits[model.TaxonomyVerticals]["finance"][0] = "changed"
			convey.So(item.VerticalMatches[0], convey.ShouldEqual, "finance")
			convey.So(item.KeywordHits[model.TaxonomyVerticals]["finance"][0], convey.ShouldEqual, "bank")
		})

		convey.Convey("Then an item missing one taxonomy is not relevant", func() {
			item.ComplianceMatches = nil
			convey.So(item.Relevant(), convey.ShouldBeFalse)
		})
	})
}
