package feed

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// arXiv identifiers encode year and month: arxiv.org/abs/2407.12345 was
// submitted in July 2024.
var arxivIDRe = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d{2})(\d{2})\.\d+`)

// PublishedDate resolves the publication date for a discovered item: the
// feed's own date first, then the arXiv ID heuristic, then now. The final
// fallback is logged so spurious "just published" items can be traced back.
func PublishedDate(item Item, now func() time.Time) time.Time {
	if item.Published != nil {
		return item.Published.UTC()
	}
	if ts, ok := arxivDate(item.Link); ok {
		return ts
	}
	zap.S().Warnw("no publication date in feed item, using current time", "link", item.Link)
	return now().UTC()
}

func arxivDate(link string) (time.Time, bool) {
	m := arxivIDRe.FindStringSubmatch(link)
	if m == nil {
		return time.Time{}, false
	}
	yy, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	year := 2000 + yy
	if year < 2020 || year > 2030 || mm < 1 || mm > 12 {
		return time.Time{}, false
	}
	ts, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%02d-01", year, mm))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

var arxivHostRe = regexp.MustCompile(`(?i)arxiv\.org/`)

// IsArxiv reports whether a URL points at arXiv. Full-text fetching is
// skipped for these; the abstract from the feed is already the best text.
func IsArxiv(link string) bool {
	return arxivHostRe.MatchString(link)
}
