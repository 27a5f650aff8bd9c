package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// bfsiKeywords gate discovery: an item mentioning any of these in its title
// or description is a candidate for the queue.
var bfsiKeywords = []string{
	"bank", "banking", "finance", "financial", "insurance", "fintech",
	"payment", "credit", "risk", "compliance", "regulation", "aml", "kyc",
	"fraud", "asset", "investment", "loan", "mortgage", "wealth", "trading",
	"securities", "capital", "treasury", "defi", "crypto", "blockchain",
	"ledger", "settlement",
}

// exclusionPatterns name domains whose articles keep tripping the keyword
// gate on incidental matches ("patient risk", "crop insurance"). An
// exclusion match always wins.
var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(medical|healthcare|x-ray|diagnosis|patient|clinical|hospital|doctor)\b`),
	regexp.MustCompile(`(?i)\b(classroom|curriculum|pedagogy|teaching methods|school|student|k-12)\b`),
	regexp.MustCompile(`(?i)\b(agriculture|farming|crop|soil|harvest|livestock)\b`),
	regexp.MustCompile(`(?i)\b(manufacturing|factory|production line|assembly|industrial machinery)\b`),
	regexp.MustCompile(`(?i)\b(military|defense|weapon|combat|warfare)\b`),
}

var wordBoundaryCache = map[string]*regexp.Regexp{}

func init() {
	for _, kw := range bfsiKeywords {
		wordBoundaryCache[kw] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	}
}

// Relevant applies the discovery keyword gate. Source-specific keywords
// extend the inclusion list; the exclusion patterns override both.
func Relevant(title, description string, sourceKeywords []string) (bool, string) {
	text := title + " " + description

	for _, re := range exclusionPatterns {
		if m := re.FindString(text); m != "" {
			return false, fmt.Sprintf("excluded domain term %q", strings.ToLower(m))
		}
	}

	for _, kw := range bfsiKeywords {
		if wordBoundaryCache[kw].MatchString(text) {
			return true, fmt.Sprintf("matched %q", kw)
		}
	}

	lower := strings.ToLower(text)
	for _, kw := range sourceKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true, fmt.Sprintf("matched source keyword %q", kw)
		}
	}

	return false, "no BFSI keyword match"
}
