package source

import (
	"net/http"
	"time"
)

// NewClient builds the pooled HTTP client shared by the JSON adapters.
// Connection pool width tracks the worker pool so concurrent attempts reuse
// keep-alive connections instead of opening new ones.
func NewClient(cfg Config) *http.Client {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	transport := &http.Transport{
		MaxIdleConns:        maxConns * 2,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
