package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfsi-insights/curation-cli/internal/store"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeSources(t, `
sources:
  - name: McKinsey
    domain: mckinsey.com
    tier: premium
    category: strategy-consulting
    rss_feed: https://www.mckinsey.com/insights/rss
    enabled: true
    keywords: [banking, insurance]
  - slug: bis
    name: Bank for International Settlements
    domain: bis.org
    category: regulator
    enabled: true
`)

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "mckinsey", sources[0].Slug, "slug derived from name when omitted")
	assert.Equal(t, "premium", sources[0].Tier)
	assert.Equal(t, []string{"banking", "insurance"}, sources[0].Keywords)

	assert.Equal(t, "bis", sources[1].Slug)
	assert.Equal(t, "standard", sources[1].Tier, "tier defaults to standard")
	assert.Equal(t, "regulator", sources[1].Category)
}

func TestLoadSourcesRejectsDuplicateSlug(t *testing.T) {
	path := writeSources(t, `
sources:
  - name: McKinsey
    domain: mckinsey.com
  - slug: mckinsey
    name: McKinsey Copy
    domain: copy.example
`)
	_, err := LoadSources(path)
	assert.ErrorContains(t, err, "duplicate source slug")
}

func TestLoadSourcesRejectsMissingDomain(t *testing.T) {
	path := writeSources(t, `
sources:
  - name: Nameless
`)
	_, err := LoadSources(path)
	assert.ErrorContains(t, err, "missing name or domain")
}

func TestLoadTaxonomies(t *testing.T) {
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	tax, err := LoadTaxonomies(ctx, s)
	require.NoError(t, err)

	assert.Contains(t, tax.Topics, "agentic-ai")
	assert.Contains(t, tax.Industries, "banking")
	assert.Contains(t, tax.Geographies, "europe")
	assert.InDelta(t, 0.9, tax.ContentTypeWeights["research-paper"], 1e-9)
	assert.InDelta(t, 0.6, tax.ContentTypeWeight("unknown-type"), 1e-9, "unknown content type gets the default weight")
}
