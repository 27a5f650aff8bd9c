package model

// Taxonomies is a snapshot of the controlled vocabularies and scoring
// weights used by enrichment. Stages receive it from a TaxonomyProvider at
// construction time; nothing caches it process-globally.
type Taxonomies struct {
	Roles                []string
	Industries           []string
	Topics               []string
	ContentTypes         []string
	Geographies          []string
	UseCases             []string
	AgenticCapabilities  []string
	ContentTypeWeights   map[string]float64
	SourceWeights        map[string]float64
}

// SourceWeight returns the reputation weight for a source name, or the
// 0.6 baseline for sources outside the registry.
func (t *Taxonomies) SourceWeight(name string) float64 {
	if t != nil && name != "" {
		if w, ok := t.SourceWeights[name]; ok {
			return w
		}
	}
	return 0.6
}

// ContentTypeWeight returns the weight for a content type code, or the
// 0.6 baseline for unknown types.
func (t *Taxonomies) ContentTypeWeight(code string) float64 {
	if t != nil && code != "" {
		if w, ok := t.ContentTypeWeights[code]; ok {
			return w
		}
	}
	return 0.6
}

// tierWeights and categoryWeights feed the source reputation blend: a
// source's weight is the average of its tier and category baselines.
var tierWeights = map[string]float64{
	"premium":  1.0,
	"standard": 0.85,
	"basic":    0.7,
}

var categoryWeights = map[string]float64{
	"regulator":           1.0,
	"strategy-consulting": 0.95,
	"research":            0.9,
	"publication":         0.85,
}

// BlendSourceWeight derives a reputation weight from a source's tier and
// category. Unknown tiers fall back to 0.7; unknown categories fall back to
// the tier baseline.
func BlendSourceWeight(tier, category string) float64 {
	base, ok := tierWeights[tier]
	if !ok {
		base = 0.7
	}
	catBase, ok := categoryWeights[category]
	if !ok {
		catBase = base
	}
	return (base + catBase) / 2
}
