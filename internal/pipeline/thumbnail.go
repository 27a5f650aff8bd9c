package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ImageFetcher downloads an image and reports its content type.
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, string, error)
}

// ThumbnailSaver stores lead images for enriched items so the review UI can
// render previews without hotlinking source sites.
type ThumbnailSaver struct {
	fetcher ImageFetcher
	dir     string
}

func NewThumbnailSaver(f ImageFetcher, dir string) *ThumbnailSaver {
	return &ThumbnailSaver{fetcher: f, dir: dir}
}

// Save downloads the image and writes it under the thumbs directory, named
// by queue item ID. Returns the relative reference to store on the item.
func (t *ThumbnailSaver) Save(ctx context.Context, itemID, imageURL string) (string, error) {
	data, contentType, err := t.fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		return "", eris.Wrap(err, "thumbnail: download")
	}

	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", eris.Wrap(err, "thumbnail: create dir")
	}

	name := itemID + extensionFor(contentType, imageURL)
	path := filepath.Join(t.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "thumbnail: write file")
	}
	return name, nil
}

func extensionFor(contentType, imageURL string) string {
	switch {
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "gif"):
		return ".gif"
	case strings.Contains(contentType, "svg"):
		return ".svg"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return ".jpg"
	}
	if ext := strings.ToLower(filepath.Ext(imageURL)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".jpg"
}
