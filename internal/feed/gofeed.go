package feed

import (
	"bytes"
	"context"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
)

// GofeedParser parses RSS, Atom, and JSON feeds via gofeed.
type GofeedParser struct {
	parser *gofeed.Parser
}

func NewGofeedParser() *GofeedParser {
	return &GofeedParser{parser: gofeed.NewParser()}
}

func (p *GofeedParser) Parse(ctx context.Context, data []byte) ([]Item, error) {
	parsed, err := p.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "feed: parse")
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, fi := range parsed.Items {
		if fi.Link == "" {
			continue
		}
		item := Item{
			Title:       fi.Title,
			Link:        fi.Link,
			Description: fi.Description,
			Published:   fi.PublishedParsed,
		}
		if item.Published == nil {
			item.Published = fi.UpdatedParsed
		}
		for _, a := range fi.Authors {
			if a != nil && a.Name != "" {
				item.Authors = append(item.Authors, a.Name)
			}
		}
		items = append(items, item)
	}
	return items, nil
}
