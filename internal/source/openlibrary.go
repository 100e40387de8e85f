package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
)

// OpenLibraryAdapter queries the Open Library lookup-by-ISBN JSON endpoint.
// Extraction falls back from the description field to first_sentence to the
// referenced work, one level deep.
type OpenLibraryAdapter struct {
	client    *http.Client
	baseURL   string
	userAgent string
	delay     func(context.Context)
	logger    *zap.Logger
}

// NewOpenLibraryAdapter constructs the adapter around a shared pooled client.
func NewOpenLibraryAdapter(cfg Config, client *http.Client, logger *zap.Logger) *OpenLibraryAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenLibraryAdapter{
		client:    client,
		baseURL:   strings.TrimRight(cfg.OpenLibraryURL, "/"),
		userAgent: cfg.UserAgent,
		delay:     func(ctx context.Context) { pause(ctx, cfg.Delay) },
		logger:    logger,
	}
}

// Name implements Adapter.
func (a *OpenLibraryAdapter) Name() string { return "openlibrary" }

// editionPayload is the subset of the edition document we care about.
// description and first_sentence arrive either as plain strings or as
// {"type": ..., "value": ...} objects.
type editionPayload struct {
	Description   flexText `json:"description"`
	FirstSentence flexText `json:"first_sentence"`
	Works         []struct {
		Key string `json:"key"`
	} `json:"works"`
}

type workPayload struct {
	Description flexText `json:"description"`
}

// flexText unmarshals a string-or-object text field.
type flexText struct {
	Value string
}

func (f *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Value = s
		return nil
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unmarshal text field: %w", err)
	}
	f.Value = obj.Value
	return nil
}

// Attempt implements Adapter.
func (a *OpenLibraryAdapter) Attempt(ctx context.Context, rec catalog.Record) Outcome {
	defer a.delay(ctx)

	var edition editionPayload
	outcome, ok := a.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", a.baseURL, rec.ISBN), &edition)
	if !ok {
		return outcome
	}

	desc := edition.Description.Value
	if desc == "" {
		desc = edition.FirstSentence.Value
	}
	if desc == "" && len(edition.Works) > 0 && edition.Works[0].Key != "" {
		var work workPayload
		if workOutcome, workOK := a.getJSON(ctx, a.baseURL+edition.Works[0].Key+".json", &work); workOK {
			desc = work.Description.Value
		} else if workOutcome.Kind == KindTransient {
			return workOutcome
		}
	}

	desc = catalog.CleanDescription(desc)
	if desc == "" {
		return Unavailable()
	}
	return Resolved(desc)
}

// getJSON fetches and decodes one endpoint. The bool reports whether the
// payload was decoded; when false the Outcome carries the classification.
func (a *OpenLibraryAdapter) getJSON(ctx context.Context, url string, out any) (Outcome, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Transient(fmt.Errorf("build request: %w", err)), false
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return Transient(fmt.Errorf("openlibrary get: %w", err)), false
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			a.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NotFound(), false
	case resp.StatusCode != http.StatusOK:
		return Transient(fmt.Errorf("openlibrary status %d", resp.StatusCode)), false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Transient(fmt.Errorf("read body: %w", err)), false
	}
	if err := json.Unmarshal(body, out); err != nil {
		// A malformed document will not improve on retry.
		a.logger.Debug("openlibrary payload not decodable", zap.String("url", url), zap.Error(err))
		return Unavailable(), false
	}
	return Outcome{}, true
}
