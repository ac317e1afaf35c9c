package listings

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// HeadlessConfig controls the chromedp-backed extractor.
type HeadlessConfig struct {
	BaseURL        string
	Area           string
	UserAgent      string
	AcceptLanguage string
	MaxPerKeyword  int
	NavTimeout     time.Duration
}

// HeadlessExtractor drives headless Chrome against the search-results page.
// The session presents a realistic client identity and suppresses the
// automation signals the target is known to check.
type HeadlessExtractor struct {
	cfg         HeadlessConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewHeadless creates a HeadlessExtractor. The browser process is launched
// lazily on first Extract; Close must be called to release the allocator.
func NewHeadless(cfg HeadlessConfig) *HeadlessExtractor {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}
	if cfg.MaxPerKeyword <= 0 {
		cfg.MaxPerKeyword = 10
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &HeadlessExtractor{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context, tearing down the browser.
func (e *HeadlessExtractor) Close() {
	e.allocCancel()
}

// Extract navigates to the results page for a keyword, waits the settle
// interval to emulate human pacing, and pulls candidates out of the rendered
// document. It also returns the rendered HTML for archiving.
func (e *HeadlessExtractor) Extract(ctx context.Context, keyword string, settle SettleFunc) ([]Candidate, []byte, error) {
	taskCtx, taskCancel := chromedp.NewContext(e.allocator)
	defer taskCancel()

	navCtx, navCancel := context.WithTimeout(taskCtx, e.cfg.NavTimeout)
	defer navCancel()

	actions := []chromedp.Action{
		e.identitySetup(),
		chromedp.Navigate(searchURL(e.cfg.BaseURL, keyword, e.cfg.Area)),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return nil, nil, fmt.Errorf("navigate for %q: %w", keyword, err)
	}

	if settle != nil {
		if err := settle(ctx); err != nil {
			return nil, nil, err
		}
	}

	extractCtx, extractCancel := context.WithTimeout(taskCtx, 15*time.Second)
	defer extractCancel()

	var (
		candidates []Candidate
		html       string
	)
	err := chromedp.Run(extractCtx,
		chromedp.Evaluate(extractionJS(e.cfg.MaxPerKeyword), &candidates),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("extract for %q: %w", keyword, err)
	}
	return candidates, []byte(html), nil
}

// identitySetup applies the realistic client identity before navigation:
// user-agent and locale headers, plus a pre-navigation script hiding
// navigator.webdriver from the page.
func (e *HeadlessExtractor) identitySetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if e.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(e.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		headers := network.Headers{
			"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		}
		if e.cfg.AcceptLanguage != "" {
			headers["Accept-Language"] = e.cfg.AcceptLanguage
		}
		if err := network.SetExtraHTTPHeaders(headers).Do(ctx); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
		script := `Object.defineProperty(navigator, "webdriver", { get: () => false });`
		if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
			return fmt.Errorf("add init script: %w", err)
		}
		return nil
	})
}

func searchURL(base, keyword, area string) string {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("l", area)
	return base + "/jobs?" + params.Encode()
}

func extractionJS(max int) string {
	return fmt.Sprintf(`(() => {
	const pick = (root, sel) => {
		const el = root.querySelector(sel);
		return el && el.innerText ? el.innerText.trim() : "";
	};
	const href = (root, sel) => {
		const el = root.querySelector(sel);
		return el && el.href ? el.href : "";
	};
	const cards = Array.from(document.querySelectorAll(%q)).slice(0, %d);
	return cards.map((card) => ({
		title: pick(card, %q),
		company: pick(card, %q),
		location: pick(card, %q),
		description: pick(card, %q),
		url: href(card, %q),
		posted_date: "recent",
	}));
})()`, cardSelectors, max, titleSelectors, companySelectors, locationSelectors, snippetSelectors, linkSelectors)
}
