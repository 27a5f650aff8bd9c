// Package registry loads the curated source list and the tagging taxonomies
// the enrichment agent classifies against.
package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

type sourcesFile struct {
	Sources []model.Source `yaml:"sources"`
}

// LoadSources reads the source seed file. Slugs must be unique; a duplicate
// slug is a config error, not something to silently last-write-wins.
func LoadSources(path string) ([]model.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read sources file %s", path)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "registry: parse sources file %s", path)
	}
	if len(file.Sources) == 0 {
		return nil, eris.Errorf("registry: no sources in %s", path)
	}

	seen := make(map[string]bool, len(file.Sources))
	for i := range file.Sources {
		src := &file.Sources[i]
		if src.Slug == "" {
			src.Slug = model.Slugify(src.Name)
		}
		if src.Name == "" || src.Domain == "" {
			return nil, eris.Errorf("registry: source %q missing name or domain", src.Slug)
		}
		if seen[src.Slug] {
			return nil, eris.Errorf("registry: duplicate source slug %q", src.Slug)
		}
		seen[src.Slug] = true
		if src.Tier == "" {
			src.Tier = "standard"
		}
		if src.Category == "" {
			src.Category = "publication"
		}
	}
	return file.Sources, nil
}
