package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html/charset"

	model "github.com/okian/compliance-radar/internal/domain/model"
)

const atomNamespace = "http://www.w3.org/2005/Atom"

// entry is the raw per-item field set every variant extracts.
type entry struct {
	title      string
	link       string
	summary    string
	published  string
	categories []string
}

// variant extracts entries from a document whose root has been inspected.
type variant interface {
	entries(data []byte, root *xmlNode) ([]entry, error)
}

// xmlNode is a generic element tree used for root inspection and the
// fallback variant.
type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []xmlNode  `xml:",any"`
}

func (n *xmlNode) local() string { return strings.ToLower(n.XMLName.Local) }

func (n *xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

// Parse decodes a feed document into unclassified items for source.
// Malformed XML wraps ErrParse.
func Parse(data []byte, source string, maxItems int) ([]model.NewsItem, error) {
	root, err := decodeTree(data)
	if err != nil {
		return nil, err
	}

	entries, err := selectVariant(root).entries(data, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if maxItems > 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	items := make([]model.NewsItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, model.NewNewsItem(
			source,
			plainText(e.title),
			e.link,
			plainText(e.summary),
			parseDate(e.published),
			e.categories,
		))
	}
	return items, nil
}

func decodeTree(data []byte) (*xmlNode, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel
	var root xmlNode
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &root, nil
}

func selectVariant(root *xmlNode) variant {
	switch root.local() {
	case "rss", "rdf":
		return rssVariant{}
	case "feed":
		return atomVariant{}
	default:
		return fallbackVariant{}
	}
}

// rssVariant handles RSS 0.9x/2.0 and RDF (RSS 1.0) documents.
type rssVariant struct{}

func (rssVariant) entries(data []byte, root *xmlNode) ([]entry, error) {
	doc, err := (&rss.Parser{}).Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	// The parser keeps one value per category element and drops the term
	// attribute, so categories come from the element tree when it lines up.
	nodes := descendants(root, func(n *xmlNode) bool { return n.local() == "item" })
	aligned := len(nodes) == len(doc.Items)

	out := make([]entry, 0, len(doc.Items))
	for i, it := range doc.Items {
		e := entry{title: it.Title}

		e.link = it.Link
		if e.link == "" && it.GUID != nil {
			e.link = it.GUID.Value
		}

		e.summary = firstNonEmpty(custom(it.Custom, "summary"), it.Description, it.Content)

		var dcDate string
		if it.DublinCoreExt != nil && len(it.DublinCoreExt.Date) > 0 {
			dcDate = it.DublinCoreExt.Date[0]
		}
		e.published = firstNonEmpty(
			custom(it.Custom, "published"),
			custom(it.Custom, "updated"),
			custom(it.Custom, "issued"),
			it.PubDate,
			dcDate,
		)

		if aligned {
			e.categories = childCategories(nodes[i])
		} else {
			for _, c := range it.Categories {
				if c != nil {
					e.categories = append(e.categories, c.Value)
				}
			}
			e.categories = append(e.categories, extensionCategories(it.Extensions)...)
		}
		out = append(out, e)
	}
	return out, nil
}

// atomVariant handles Atom 0.3 and 1.0 documents.
type atomVariant struct{}

func (atomVariant) entries(data []byte, _ *xmlNode) ([]entry, error) {
	doc, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out := make([]entry, 0, len(doc.Entries))
	for _, it := range doc.Entries {
		e := entry{title: it.Title, link: atomLink(it)}

		e.summary = it.Summary
		if e.summary == "" && it.Content != nil {
			e.summary = it.Content.Value
		}
		// the parser stores <issued> in Published
		e.published = firstNonEmpty(it.Published, it.Updated)

		for _, c := range it.Categories {
			if c == nil {
				continue
			}
			e.categories = append(e.categories, firstNonEmpty(c.Term, c.Label))
		}
		e.categories = append(e.categories, extensionCategories(it.Extensions)...)
		out = append(out, e)
	}
	return out, nil
}

func atomLink(e *atom.Entry) string {
	for _, l := range e.Links {
		if l != nil && l.Href != "" && (l.Rel == "" || strings.EqualFold(l.Rel, "alternate")) {
			return l.Href
		}
	}
	for _, l := range e.Links {
		if l != nil && l.Href != "" {
			return l.Href
		}
	}
	return e.ID
}

// fallbackVariant searches unknown wrappers for RSS items, then Atom entries.
type fallbackVariant struct{}

func (fallbackVariant) entries(_ []byte, root *xmlNode) ([]entry, error) {
	nodes := descendants(root, func(n *xmlNode) bool { return n.local() == "item" })
	if len(nodes) == 0 {
		nodes = descendants(root, func(n *xmlNode) bool {
			return n.local() == "entry" && n.XMLName.Space == atomNamespace
		})
	}
	out := make([]entry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, entry{
			title:      childText(n, "title"),
			link:       childText(n, "link", "id", "guid"),
			summary:    childText(n, "summary", "description", "content"),
			published:  childText(n, "published", "updated", "issued", "pubdate", "date"),
			categories: childCategories(n),
		})
	}
	return out, nil
}

// descendants returns matching nodes below root in document order.
func descendants(root *xmlNode, match func(*xmlNode) bool) []*xmlNode {
	var out []*xmlNode
	var walk func(n *xmlNode)
	walk = func(n *xmlNode) {
		for i := range n.Children {
			c := &n.Children[i]
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// childText returns the text, or href attribute, of the first direct child
// named by names, trying names in order.
func childText(n *xmlNode, names ...string) string {
	for _, name := range names {
		for i := range n.Children {
			c := &n.Children[i]
			if c.local() != name {
				continue
			}
			if t := strings.TrimSpace(c.Text); t != "" {
				return t
			}
			if href := strings.TrimSpace(c.attr("href")); href != "" {
				return href
			}
		}
	}
	return ""
}

func childCategories(n *xmlNode) []string {
	var out []string
	for i := range n.Children {
		c := &n.Children[i]
		if !isCategoryName(c.local()) {
			continue
		}
		if v := firstNonEmpty(strings.TrimSpace(c.Text), c.attr("term")); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isCategoryName(name string) bool {
	switch strings.ToLower(name) {
	case "category", "subject", "tag":
		return true
	}
	return false
}

func custom(m map[string]string, name string) string {
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// extensionCategories collects namespaced category/subject/tag elements
// (dc:subject and friends), ordered by prefix for stable output.
func extensionCategories(exts ext.Extensions) []string {
	prefixes := make([]string, 0, len(exts))
	for p := range exts {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var out []string
	for _, p := range prefixes {
		names := make([]string, 0, len(exts[p]))
		for name := range exts[p] {
			if isCategoryName(name) {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			for _, e := range exts[p][name] {
				if v := firstNonEmpty(strings.TrimSpace(e.Value), e.Attrs["term"]); v != "" {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
