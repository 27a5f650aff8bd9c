package llm

import (
	"fmt"
	"strings"
)

const filterSystemPrompt = `You are a content triage assistant for a knowledge base covering banking, financial services, and insurance (BFSI). Decide whether an article is relevant to BFSI professionals evaluating AI and automation. Respond with JSON only: {"relevant": true/false, "reason": "one sentence"}`

func filterPrompt(req FilterRequest) string {
	var sb strings.Builder
	sb.WriteString("Is this article relevant to a BFSI AI knowledge base?\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", req.Title)
	fmt.Fprintf(&sb, "Description: %s\n", req.Description)
	fmt.Fprintf(&sb, "Source: %s\n", req.Source)
	fmt.Fprintf(&sb, "URL: %s\n", req.URL)
	sb.WriteString("\nRespond with JSON: {\"relevant\": true/false, \"reason\": \"...\"}")
	return sb.String()
}

const enrichSystemPrompt = `You are a research analyst enriching articles for a BFSI AI knowledge base. Produce summaries at three lengths, classify the article against the provided taxonomies, score its relevance for three reader personas, and list any AI vendors and BFSI organizations it mentions. Respond with JSON only.`

func enrichPrompt(req EnrichRequest) string {
	var sb strings.Builder
	sb.WriteString("Enrich this article.\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", req.Title)
	fmt.Fprintf(&sb, "Source: %s\n", req.Source)
	fmt.Fprintf(&sb, "URL: %s\n", req.URL)
	fmt.Fprintf(&sb, "Description: %s\n\n", req.Description)
	if req.Text != "" {
		fmt.Fprintf(&sb, "Full text:\n%s\n\n", truncate(req.Text, 24000))
	}

	sb.WriteString("Pick exactly one value per taxonomy (or empty string if none fits):\n")
	fmt.Fprintf(&sb, "- role: %s\n", strings.Join(req.Taxonomies.Roles, ", "))
	fmt.Fprintf(&sb, "- industry: %s\n", strings.Join(req.Taxonomies.Industries, ", "))
	fmt.Fprintf(&sb, "- topic: %s\n", strings.Join(req.Taxonomies.Topics, ", "))
	fmt.Fprintf(&sb, "- content_type: %s\n", strings.Join(req.Taxonomies.ContentTypes, ", "))
	fmt.Fprintf(&sb, "- geography: %s\n", strings.Join(req.Taxonomies.Geographies, ", "))
	fmt.Fprintf(&sb, "- use_cases: %s\n", strings.Join(req.Taxonomies.UseCases, ", "))
	fmt.Fprintf(&sb, "- agentic_capabilities: %s\n\n", strings.Join(req.Taxonomies.AgenticCapabilities, ", "))

	sb.WriteString(`Rules:
- summary.short: 120-240 characters
- summary.medium: 240-480 characters
- summary.long: 640-1120 characters
- tag values are single codes from the lists above; never join values with "|"
- persona_scores are between 0 and 1
- bfsi_relevant is false if the article has no banking, financial services, or insurance angle

Respond with JSON:
{
  "bfsi_relevant": true,
  "relevance_reason": "...",
  "relevance_confidence": 0.0,
  "summary": {"short": "...", "medium": "...", "long": "..."},
  "tags": {"role": "...", "industry": "...", "topic": "...", "content_type": "...", "geography": "...", "use_cases": "...", "agentic_capabilities": "..."},
  "persona_scores": {"executive": 0.0, "technical": 0.0, "compliance": 0.0},
  "vendors": ["..."],
  "organizations": ["..."]
}`)
	return sb.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
