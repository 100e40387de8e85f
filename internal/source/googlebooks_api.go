package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
)

// GoogleBooksAPIAdapter is the last link in the chain: a keyword search by
// normalized title and author against the Google Books volumes API. Used for
// records whose identifier resolved nowhere.
type GoogleBooksAPIAdapter struct {
	client    *http.Client
	baseURL   string
	userAgent string
	minLen    int
	delay     func(context.Context)
	logger    *zap.Logger
}

// NewGoogleBooksAPIAdapter constructs the adapter around a shared pooled client.
func NewGoogleBooksAPIAdapter(cfg Config, client *http.Client, logger *zap.Logger) *GoogleBooksAPIAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleBooksAPIAdapter{
		client:    client,
		baseURL:   strings.TrimRight(cfg.GoogleBooksAPIURL, "/"),
		userAgent: cfg.UserAgent,
		minLen:    cfg.MinDescriptionLen,
		delay:     func(ctx context.Context) { pause(ctx, cfg.Delay) },
		logger:    logger,
	}
}

// Name implements Adapter.
func (a *GoogleBooksAPIAdapter) Name() string { return "googlebooks-api" }

type volumesPayload struct {
	Items []struct {
		VolumeInfo struct {
			Description string `json:"description"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Attempt implements Adapter. Queries title+author first, then title only
// when the stricter query returns nothing.
func (a *GoogleBooksAPIAdapter) Attempt(ctx context.Context, rec catalog.Record) Outcome {
	defer a.delay(ctx)

	title := catalog.NormalizeText(rec.Title)
	author := catalog.CleanAuthor(rec.Author)
	if title == "" {
		return Unavailable()
	}

	queries := []string{fmt.Sprintf("intitle:%s+inauthor:%s", title, author)}
	if author == "" {
		queries = queries[:0]
	}
	queries = append(queries, "intitle:"+title)

	for _, q := range queries {
		outcome, done := a.search(ctx, q)
		if done {
			return outcome
		}
	}
	return Unavailable()
}

// search runs one keyword query. done=false means no usable result and the
// caller may try a looser query.
func (a *GoogleBooksAPIAdapter) search(ctx context.Context, q string) (Outcome, bool) {
	endpoint := fmt.Sprintf("%s/volumes?q=%s&maxResults=1", a.baseURL, url.QueryEscape(q))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Transient(fmt.Errorf("build request: %w", err)), true
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return Transient(fmt.Errorf("volumes search: %w", err)), true
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			a.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Transient(fmt.Errorf("volumes search status %d", resp.StatusCode)), true
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Transient(fmt.Errorf("read body: %w", err)), true
	}
	var payload volumesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		a.logger.Debug("volumes payload not decodable", zap.Error(err))
		return Unavailable(), false
	}
	if len(payload.Items) == 0 {
		return Outcome{}, false
	}

	desc := catalog.CleanDescription(payload.Items[0].VolumeInfo.Description)
	if len(desc) <= a.minLen {
		return Unavailable(), false
	}
	return Resolved(desc), true
}
