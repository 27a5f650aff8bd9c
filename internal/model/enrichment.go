package model

// Enrichment is the transient result of the LLM enrichment pass, merged
// into a queue item's payload when the item is relevant and valid.
type Enrichment struct {
	BFSIRelevant        bool          `json:"bfsi_relevant"`
	RelevanceReason     string        `json:"relevance_reason,omitempty"`
	RelevanceConfidence float64       `json:"relevance_confidence"`
	Summary             Summary       `json:"summary"`
	Tags                Tags          `json:"tags"`
	PersonaScores       PersonaScores `json:"persona_scores"`
	Vendors             []string      `json:"vendors,omitempty"`
	Organizations       []string      `json:"organizations,omitempty"`
}

// FilterVerdict is the relevance filter's binary decision for a fetched item.
type FilterVerdict struct {
	Relevant bool   `json:"relevant"`
	Reason   string `json:"reason"`
}
