package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
)

// Synopsis containers on the Google Books page, in priority order.
const (
	googleBooksPrimarySelector  = "div.Mhmsgc"
	googleBooksFallbackSelector = "div#synopsistext"
)

const attemptKey = "attempt"

// scrapeResult accumulates callback output for a single request. A pointer
// is threaded through the colly request context so the shared collector can
// serve concurrent attempts.
type scrapeResult struct {
	primary    string
	fallback   string
	body       []byte
	statusCode int
	err        error
}

// Renderer re-fetches a page with JavaScript enabled. Implemented by the
// chromedp renderer; nil disables promotion.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// Detector decides whether a static page is worth re-fetching headlessly.
type Detector interface {
	NeedsJS(body []byte) bool
}

// GoogleBooksHTMLAdapter scrapes the ISBN-keyed Google Books page for the
// synopsis container. Pages that render the synopsis via JavaScript can
// optionally be promoted to a headless re-fetch.
type GoogleBooksHTMLAdapter struct {
	collector *colly.Collector
	baseURL   string
	delay     func(context.Context)
	renderer  Renderer
	detector  Detector
	logger    *zap.Logger
}

// NewGoogleBooksHTMLAdapter builds the adapter. renderer and detector may be
// nil, in which case pages are classified from the static HTML only.
func NewGoogleBooksHTMLAdapter(cfg Config, renderer Renderer, detector Detector, logger *zap.Logger) (*GoogleBooksHTMLAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	collector, err := newScrapeCollector(cfg)
	if err != nil {
		return nil, err
	}

	collector.OnHTML(googleBooksPrimarySelector, func(e *colly.HTMLElement) {
		if res := resultFromRequest(e.Request); res != nil && res.primary == "" {
			res.primary = strings.TrimSpace(e.DOM.Text())
		}
	})
	collector.OnHTML(googleBooksFallbackSelector, func(e *colly.HTMLElement) {
		if res := resultFromRequest(e.Request); res != nil && res.fallback == "" {
			res.fallback = strings.TrimSpace(e.DOM.Text())
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		if res := resultFromRequest(r.Request); res != nil {
			res.statusCode = r.StatusCode
			res.body = r.Body
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if res := resultFromRequest(r.Request); res != nil {
			res.statusCode = r.StatusCode
			res.err = err
		}
	})

	return &GoogleBooksHTMLAdapter{
		collector: collector,
		baseURL:   strings.TrimRight(cfg.GoogleBooksURL, "/"),
		delay:     func(ctx context.Context) { pause(ctx, cfg.Delay) },
		renderer:  renderer,
		detector:  detector,
		logger:    logger,
	}, nil
}

// Name implements Adapter.
func (a *GoogleBooksHTMLAdapter) Name() string { return "googlebooks-html" }

// Attempt implements Adapter.
func (a *GoogleBooksHTMLAdapter) Attempt(ctx context.Context, rec catalog.Record) Outcome {
	defer a.delay(ctx)

	url := fmt.Sprintf("%s/books?vid=ISBN%s", a.baseURL, rec.ISBN)
	res, outcome, ok := scrape(a.collector, url)
	if !ok {
		return outcome
	}

	if text := firstNonEmpty(res.primary, res.fallback); text != "" {
		return Resolved(catalog.CleanDescription(text))
	}

	if a.renderer != nil && a.detector != nil && a.detector.NeedsJS(res.body) {
		if text := a.renderAndExtract(ctx, url); text != "" {
			return Resolved(catalog.CleanDescription(text))
		}
	}
	return Unavailable()
}

func (a *GoogleBooksHTMLAdapter) renderAndExtract(ctx context.Context, url string) string {
	body, err := a.renderer.Render(ctx, url)
	if err != nil {
		a.logger.Debug("headless render failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{googleBooksPrimarySelector, googleBooksFallbackSelector} {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// newScrapeCollector configures a synchronous colly collector with pooled
// connections, per-call timeout, and the configured inter-call delay.
func newScrapeCollector(cfg Config) (*colly.Collector, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(NewClient(cfg).Transport)

	parallelism := cfg.MaxConns
	if parallelism <= 0 {
		parallelism = 10
	}
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("set collector limits: %w", err)
	}
	return collector, nil
}

// scrape issues one synchronous request through the shared collector. The
// bool reports success; on failure the Outcome carries the classification.
func scrape(collector *colly.Collector, url string) (*scrapeResult, Outcome, bool) {
	res := &scrapeResult{}
	rctx := colly.NewContext()
	rctx.Put(attemptKey, res)

	err := collector.Request(http.MethodGet, url, nil, rctx, nil)
	if err == nil && res.err == nil {
		return res, Outcome{}, true
	}
	if res.err != nil {
		err = res.err
	}
	switch {
	case res.statusCode == http.StatusNotFound:
		return nil, NotFound(), false
	case res.statusCode >= 400 && res.statusCode < 500 && res.statusCode != http.StatusTooManyRequests:
		return nil, Unavailable(), false
	default:
		return nil, Transient(fmt.Errorf("scrape %s: %w", url, err)), false
	}
}

func resultFromRequest(req *colly.Request) *scrapeResult {
	res, _ := req.Ctx.GetAny(attemptKey).(*scrapeResult)
	return res
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
