// Package listings scrapes job-search result pages into the listing catalog,
// classifying sectors and geocoding locations along the way.
package listings

import "context"

// Candidate is a listing extracted from a rendered search-results page,
// before classification and geocoding.
type Candidate struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PostedDate  string `json:"posted_date"`
}

// Extractor produces listing candidates for one keyword search. It returns
// the candidates, the raw rendered HTML for optional archiving, and an error
// when the search itself failed (navigation timeout, fetch error). The settle
// argument is how long to wait after navigation before extracting.
type Extractor interface {
	Extract(ctx context.Context, keyword string, settle SettleFunc) ([]Candidate, []byte, error)
}

// SettleFunc blocks for the post-navigation settle interval. Extractors call
// it between navigation and DOM extraction.
type SettleFunc func(ctx context.Context) error

// FilterCandidates drops candidates missing both title and company and caps
// the result at max entries, preserving order.
func FilterCandidates(candidates []Candidate, max int) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Title == "" && c.Company == "" {
			continue
		}
		out = append(out, c)
		if len(out) == max {
			break
		}
	}
	return out
}

// Per-field selector fallbacks: the primary class name first, then the legacy
// alternate still present on older result markups.
const (
	cardSelectors     = ".job_seen_beacon, .jobsearch-SerpJobCard"
	titleSelectors    = ".jobTitle, .jobtitle"
	companySelectors  = ".companyName, .company"
	locationSelectors = ".companyLocation, .location"
	snippetSelectors  = ".job-snippet, .summary"
	linkSelectors     = "a.jcs-JobTitle, a.jobtitle"
)
