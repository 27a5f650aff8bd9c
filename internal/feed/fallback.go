package feed

import (
	"context"
	"html"
	"regexp"
	"strings"
	"time"
)

// FallbackParser is a regex-based RSS/Atom scanner used when gofeed chokes on
// a malformed document. Several regulator feeds ship XML with undeclared
// entities which trip a strict parser but still follow the item shape.
type FallbackParser struct{}

var (
	itemRe    = regexp.MustCompile(`(?s)<(?:item|entry)[\s>].*?</(?:item|entry)>`)
	titleRe   = regexp.MustCompile(`(?s)<title[^>]*>(.*?)</title>`)
	linkTagRe = regexp.MustCompile(`(?s)<link[^>]*>(.*?)</link>`)
	linkHrefRe = regexp.MustCompile(`<link[^>]*href="([^"]+)"`)
	descRe    = regexp.MustCompile(`(?s)<(?:description|summary|content)[^>]*>(.*?)</(?:description|summary|content)>`)
	dateRe    = regexp.MustCompile(`(?s)<(?:pubDate|published|updated|dc:date)[^>]*>(.*?)</(?:pubDate|published|updated|dc:date)>`)
	cdataRe   = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*?)\]\]>\s*$`)
)

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02",
}

func (FallbackParser) Parse(ctx context.Context, data []byte) ([]Item, error) {
	doc := string(data)
	var items []Item
	for _, raw := range itemRe.FindAllString(doc, -1) {
		item := Item{
			Title:       extract(titleRe, raw),
			Link:        extractLink(raw),
			Description: extract(descRe, raw),
		}
		if item.Link == "" {
			continue
		}
		if dateText := extract(dateRe, raw); dateText != "" {
			if ts, ok := parseDate(dateText); ok {
				item.Published = &ts
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func extract(re *regexp.Regexp, raw string) string {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	text := m[1]
	if inner := cdataRe.FindStringSubmatch(text); inner != nil {
		text = inner[1]
	}
	return strings.TrimSpace(html.UnescapeString(text))
}

func extractLink(raw string) string {
	// Atom puts the URL in an href attribute, RSS in the element body.
	if m := linkHrefRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return extract(linkTagRe, raw)
}

func parseDate(text string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
