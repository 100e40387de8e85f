// Package source implements the external description sources. Each adapter
// attempts to fetch a description for one record and classifies the result,
// never surfacing raw errors to the orchestrator.
package source

import (
	"context"
	"time"

	"github.com/rclib/bookweaver/internal/catalog"
)

// Kind classifies the result of one adapter attempt.
type Kind string

// Outcome kinds. Transient outcomes are the only retryable ones.
const (
	KindResolved    Kind = "resolved"
	KindNotFound    Kind = "not_found"
	KindTransient   Kind = "transient_error"
	KindUnavailable Kind = "unavailable"
)

// Outcome is the classified result of one adapter attempt. Description is
// non-empty exactly when Kind is KindResolved.
type Outcome struct {
	Kind        Kind
	Description string
	Err         error
}

// Resolved builds a successful outcome.
func Resolved(description string) Outcome {
	return Outcome{Kind: KindResolved, Description: description}
}

// NotFound indicates the source has no data for this identifier.
func NotFound() Outcome {
	return Outcome{Kind: KindNotFound}
}

// Transient indicates a retryable failure (network, timeout, 5xx, 429).
func Transient(err error) Outcome {
	return Outcome{Kind: KindTransient, Err: err}
}

// Unavailable indicates the source was reached but returned no usable
// content. Never retried; the chain advances.
func Unavailable() Outcome {
	return Outcome{Kind: KindUnavailable}
}

// Adapter is one external-source fetch strategy.
type Adapter interface {
	// Name identifies the adapter; recorded as the description source on
	// resolved records.
	Name() string
	// Attempt fetches a description for the record. Implementations apply
	// their own per-call timeout and inter-call delay and must be safe for
	// concurrent use.
	Attempt(ctx context.Context, rec catalog.Record) Outcome
}

// Config controls shared adapter behavior.
type Config struct {
	UserAgent         string
	Timeout           time.Duration
	Delay             time.Duration
	MaxConns          int
	MinDescriptionLen int
	OpenLibraryURL    string
	GoogleBooksURL    string
	BookswagonURL     string
	GoogleBooksAPIURL string
}

// pause sleeps for the configured inter-call delay, honoring ctx. Applied
// after every call regardless of outcome so a burst of failures does not
// hammer a source.
func pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
