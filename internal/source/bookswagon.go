package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
)

// BookswagonAdapter scrapes the Bookswagon catalog page for the "about the
// book" block. Short blurbs below the noise threshold are treated as
// unusable rather than resolved.
type BookswagonAdapter struct {
	collector *colly.Collector
	baseURL   string
	minLen    int
	delay     func(context.Context)
	logger    *zap.Logger
}

// NewBookswagonAdapter builds the adapter.
func NewBookswagonAdapter(cfg Config, logger *zap.Logger) (*BookswagonAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	collector, err := newScrapeCollector(cfg)
	if err != nil {
		return nil, err
	}

	// First paragraph of the about-book block only; the rest is product
	// boilerplate.
	collector.OnHTML("div#aboutbook p:first-of-type", func(e *colly.HTMLElement) {
		if res := resultFromRequest(e.Request); res != nil && res.primary == "" {
			res.primary = strings.TrimSpace(e.DOM.Text())
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if res := resultFromRequest(r.Request); res != nil {
			res.statusCode = r.StatusCode
			res.err = err
		}
	})

	return &BookswagonAdapter{
		collector: collector,
		baseURL:   strings.TrimRight(cfg.BookswagonURL, "/"),
		minLen:    cfg.MinDescriptionLen,
		delay:     func(ctx context.Context) { pause(ctx, cfg.Delay) },
		logger:    logger,
	}, nil
}

// Name implements Adapter.
func (a *BookswagonAdapter) Name() string { return "bookswagon" }

// Attempt implements Adapter.
func (a *BookswagonAdapter) Attempt(ctx context.Context, rec catalog.Record) Outcome {
	defer a.delay(ctx)

	url := fmt.Sprintf("%s/book/c/%s", a.baseURL, rec.ISBN)
	res, outcome, ok := scrape(a.collector, url)
	if !ok {
		return outcome
	}

	text := catalog.CleanDescription(res.primary)
	if len(text) <= a.minLen {
		return Unavailable()
	}
	return Resolved(text)
}
