package model

// Source is a content source from the registry, consumed read-only by
// discovery. Premium-tier sources require manual curation and are skipped
// by unattended discovery runs.
type Source struct {
	Slug      string   `json:"slug" yaml:"slug"`
	Name      string   `json:"name" yaml:"name"`
	Domain    string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	Tier      string   `json:"tier" yaml:"tier"`
	Category  string   `json:"category,omitempty" yaml:"category,omitempty"`
	RSSFeed   string   `json:"rss_feed" yaml:"rss_feed"`
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Keywords  []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	SortOrder int      `json:"sort_order,omitempty" yaml:"sort_order,omitempty"`
}

// Premium reports whether the source requires manual curation.
func (s Source) Premium() bool {
	return s.Tier == "premium"
}
