// Package feed parses RSS and Atom feeds for the discovery agent.
package feed

import (
	"context"
	"time"
)

// Item is one entry from a source feed.
type Item struct {
	Title       string
	Link        string
	Description string
	Authors     []string
	Published   *time.Time
}

// Parser turns a raw feed document into items.
type Parser interface {
	Parse(ctx context.Context, data []byte) ([]Item, error)
}
