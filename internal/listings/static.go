package listings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// StaticConfig controls the colly-backed extractor.
type StaticConfig struct {
	BaseURL        string
	Area           string
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration
}

// StaticExtractor fetches the search-results page without a browser and
// parses the server-rendered markup. It only sees listings present in the
// initial HTML, which is enough when the target serves static results or
// when running in environments without Chrome.
type StaticExtractor struct {
	cfg StaticConfig
}

// NewStatic creates a StaticExtractor.
func NewStatic(cfg StaticConfig) *StaticExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &StaticExtractor{cfg: cfg}
}

// Extract fetches the results page for a keyword and parses listing cards
// out of the static markup.
func (e *StaticExtractor) Extract(ctx context.Context, keyword string, settle SettleFunc) ([]Candidate, []byte, error) {
	if settle != nil {
		if err := settle(ctx); err != nil {
			return nil, nil, err
		}
	}

	c := colly.NewCollector(
		colly.UserAgent(e.cfg.UserAgent),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(e.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if e.cfg.AcceptLanguage != "" {
			r.Headers.Set("Accept-Language", e.cfg.AcceptLanguage)
		}
	})

	var (
		candidates []Candidate
		raw        []byte
	)
	c.OnResponse(func(r *colly.Response) {
		raw = r.Body
	})
	c.OnHTML(cardSelectors, func(el *colly.HTMLElement) {
		link := el.ChildAttr(linkSelectors, "href")
		candidates = append(candidates, Candidate{
			Title:       strings.TrimSpace(el.ChildText(titleSelectors)),
			Company:     strings.TrimSpace(el.ChildText(companySelectors)),
			Location:    strings.TrimSpace(el.ChildText(locationSelectors)),
			Description: strings.TrimSpace(el.ChildText(snippetSelectors)),
			URL:         el.Request.AbsoluteURL(link),
			PostedDate:  "recent",
		})
	})

	if err := c.Visit(searchURL(e.cfg.BaseURL, keyword, e.cfg.Area)); err != nil {
		return nil, nil, fmt.Errorf("fetch results for %q: %w", keyword, err)
	}
	c.Wait()
	return candidates, raw, nil
}
