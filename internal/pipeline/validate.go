package pipeline

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

// Summary length bands in characters. These are generation contracts the
// model must hit, enforced here so a drifting prompt fails loudly instead
// of shipping malformed summaries to the review queue.
const (
	shortMin, shortMax   = 120, 240
	mediumMin, mediumMax = 240, 480
	longMin, longMax     = 640, 1120
)

// ValidateEnrichment rejects enrichment output that violates the output
// contract. Any violation is a hard failure for the item; there is no
// partial acceptance.
func ValidateEnrichment(e *model.Enrichment) error {
	if err := validateBand("summary.short", e.Summary.Short, shortMin, shortMax); err != nil {
		return err
	}
	if err := validateBand("summary.medium", e.Summary.Medium, mediumMin, mediumMax); err != nil {
		return err
	}
	if err := validateBand("summary.long", e.Summary.Long, longMin, longMax); err != nil {
		return err
	}

	for name, value := range e.Tags.Fields() {
		if strings.Contains(value, "|") {
			return eris.Errorf("tag %s contains a separator: %q", name, value)
		}
	}

	for name, score := range map[string]float64{
		"executive":  e.PersonaScores.Executive,
		"technical":  e.PersonaScores.Technical,
		"compliance": e.PersonaScores.Compliance,
	} {
		if score < 0 || score > 1 {
			return eris.Errorf("persona score %s out of range: %v", name, score)
		}
	}

	if e.RelevanceConfidence < 0 || e.RelevanceConfidence > 1 {
		return eris.Errorf("relevance confidence out of range: %v", e.RelevanceConfidence)
	}
	return nil
}

func validateBand(name, value string, min, max int) error {
	if len(value) < min || len(value) > max {
		return eris.Errorf("%s length %d outside [%d, %d]", name, len(value), min, max)
	}
	return nil
}
