package llm

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

// stripCodeFences removes a markdown code fence wrapper some models insist
// on adding around JSON output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseFilterVerdict decodes the filter response. When the model returns
// malformed JSON, a substring scan decides rather than dropping the item on
// a formatting hiccup.
func parseFilterVerdict(content string) model.FilterVerdict {
	cleaned := stripCodeFences(content)

	var verdict model.FilterVerdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err == nil {
		return verdict
	}

	zap.S().Warnw("filter response was not valid JSON, falling back to substring scan",
		"content", truncate(cleaned, 200))
	return model.FilterVerdict{
		Relevant: strings.Contains(cleaned, `"relevant": true`) || strings.Contains(cleaned, `"relevant":true`),
		Reason:   "unparseable filter response",
	}
}

func parseEnrichment(content string) (*model.Enrichment, error) {
	cleaned := stripCodeFences(content)

	var enrichment model.Enrichment
	if err := json.Unmarshal([]byte(cleaned), &enrichment); err != nil {
		return nil, eris.Wrap(err, "decode enrichment json")
	}
	return &enrichment, nil
}
