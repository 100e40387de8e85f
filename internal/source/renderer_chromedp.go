package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrRendererDisabled indicates rendering has been disabled via configuration.
var ErrRendererDisabled = errors.New("renderer disabled")

// RendererConfig controls the headless re-fetch subsystem.
type RendererConfig struct {
	UserAgent   string
	MaxParallel int
	NavTimeout  time.Duration
}

// ChromedpRenderer re-fetches pages with headless Chrome. One browser
// process is shared; each render runs in a fresh tab, bounded by a
// semaphore.
type ChromedpRenderer struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	sem             chan struct{}
	timeout         time.Duration
	userAgent       string
	logger          *zap.Logger
}

// NewChromedpRenderer creates a renderer using the provided configuration.
func NewChromedpRenderer(cfg RendererConfig, logger *zap.Logger) (*ChromedpRenderer, error) {
	if cfg.MaxParallel <= 0 {
		return nil, ErrRendererDisabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	timeout := cfg.NavTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &ChromedpRenderer{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		sem:             make(chan struct{}, cfg.MaxParallel),
		timeout:         timeout,
		userAgent:       cfg.UserAgent,
		logger:          logger,
	}, nil
}

// Close tears down the chromedp allocator and browser contexts.
func (r *ChromedpRenderer) Close() {
	if r == nil {
		return
	}
	r.browserCancel()
	r.allocatorCancel()
}

// Render implements Renderer: navigates the URL with JavaScript enabled and
// returns the post-render DOM.
func (r *ChromedpRenderer) Render(ctx context.Context, rawURL string) ([]byte, error) {
	if r == nil {
		return nil, ErrRendererDisabled
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("render slot: %w", ctx.Err())
	}
	defer func() { <-r.sem }()

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTask()
	stop := context.AfterFunc(ctx, cancelTask)
	defer stop()

	var html string
	err := chromedp.Run(taskCtx,
		emulation.SetUserAgentOverride(r.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", rawURL, err)
	}
	r.logger.Debug("headless render complete", zap.String("url", rawURL), zap.Int("bytes", len(html)))
	return []byte(html), nil
}
