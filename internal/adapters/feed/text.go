package feed

import (
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{ //nolint:gochecknoglobals // fixed priority list
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// rfc822Zones holds the UTC offset, in hours, of the named zones RFC 822
// allows. time.Parse only knows the offsets of the local zone's names.
// UT and Z are rewritten to GMT before parsing.
var rfc822Zones = map[string]int{ //nolint:gochecknoglobals // fixed lookup table
	"GMT": 0,
	"EST": -5,
	"EDT": -4,
	"CST": -6,
	"CDT": -5,
	"MST": -7,
	"MDT": -6,
	"PST": -8,
	"PDT": -7,
}

// parseDate returns the zero time when raw matches no known layout.
func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	// time.Parse rejects zone names shorter than three letters.
	for _, short := range []string{" UT", " Z"} {
		if strings.HasSuffix(raw, short) {
			raw = strings.TrimSuffix(raw, short) + " GMT"
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if strings.HasSuffix(layout, "MST") {
				t = withNamedZone(t)
			}
			return t
		}
	}
	return time.Time{}
}

// withNamedZone rebuilds t with the offset of its zone abbreviation.
// Unknown abbreviations are left as parsed.
func withNamedZone(t time.Time) time.Time {
	name, _ := t.Zone()
	hours, ok := rfc822Zones[strings.ToUpper(name)]
	if !ok {
		return t
	}
	y, mo, d := t.Date()
	h, mi, sec := t.Clock()
	return time.Date(y, mo, d, h, mi, sec, t.Nanosecond(), time.FixedZone(name, hours*60*60))
}

// ParseDate exposes the feed date parser for other adapters.
func ParseDate(raw string) time.Time { return parseDate(raw) }

// plainText unescapes HTML entities and strips markup.
func plainText(s string) string {
	s = html.UnescapeString(s)
	if !strings.ContainsAny(s, "<>") {
		return strings.TrimSpace(s)
	}
	// The HTML parser decodes entities again; keep the ones the first pass produced.
	markup := strings.ReplaceAll(s, "&", "&amp;")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
