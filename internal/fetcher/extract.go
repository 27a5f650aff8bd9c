package fetcher

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Page holds the fields extracted from an article's HTML.
type Page struct {
	Title       string
	Description string
	Author      string
	Published   *time.Time
	ImageURL    string
	Text        string
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractPage pulls the title, description, author, lead image, and body
// text out of an HTML document. Meta tags win over visible markup because
// publishers curate them for link previews.
func ExtractPage(html []byte, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse html")
	}

	p := &Page{}

	p.Title = clean(doc.Find("title").First().Text())
	if p.Title == "" {
		p.Title = metaContent(doc, `meta[property="og:title"]`)
	}
	if p.Title == "" {
		p.Title = clean(doc.Find("h1").First().Text())
	}
	if p.Title == "" {
		p.Title = TitleFromURL(pageURL)
	}

	p.Description = metaContent(doc, `meta[property="og:description"]`)
	if p.Description == "" {
		p.Description = metaContent(doc, `meta[name="description"]`)
	}

	p.Author = metaContent(doc, `meta[name="author"]`)
	if p.Author == "" {
		p.Author = metaContent(doc, `meta[property="article:author"]`)
	}

	p.Published = publishedTime(doc)
	p.ImageURL = resolveURL(pageURL, metaContent(doc, `meta[property="og:image"]`))

	p.Text = bodyText(doc)
	return p, nil
}

var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// publishedTime reads the publication date from article:published_time, or
// the first <time datetime> element when the meta tag is absent.
func publishedTime(doc *goquery.Document) *time.Time {
	raw := metaContent(doc, `meta[property="article:published_time"]`)
	if raw == "" {
		raw, _ = doc.Find("time[datetime]").First().Attr("datetime")
		raw = clean(raw)
	}
	if raw == "" {
		return nil
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return clean(content)
}

// bodyText prefers article or main containers and strips script and nav
// noise before flattening to plain text.
func bodyText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, form").Remove()

	for _, selector := range []string{"article", "main", `[role="main"]`, "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := clean(sel.Text()); len(text) > 200 || selector == "body" {
			return text
		}
	}
	return ""
}

func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

// TitleFromURL derives a readable title from the last URL path segment,
// used when a page offers no usable title markup.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	segment := strings.Trim(u.Path, "/")
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	if dot := strings.LastIndex(segment, "."); dot > 0 {
		segment = segment[:dot]
	}
	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	segment = clean(segment)
	if segment == "" {
		return u.Host
	}
	return titleCaser.String(segment)
}

var titleCaser = cases.Title(language.English)

func clean(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
