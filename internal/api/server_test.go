package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclib/bookweaver/internal/store"
)

type fakeRepo struct {
	books map[string]store.Book
	err   error
}

func (f *fakeRepo) GetByISBN(_ context.Context, isbn string) (store.Book, error) {
	if f.err != nil {
		return store.Book{}, f.err
	}
	b, ok := f.books[isbn]
	if !ok {
		return store.Book{}, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) Search(_ context.Context, q string) ([]store.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []store.Book
	for _, b := range f.books {
		if strings.Contains(strings.ToLower(b.Title), strings.ToLower(q)) ||
			strings.Contains(strings.ToLower(b.Author), strings.ToLower(q)) {
			out = append(out, b)
		}
	}
	return out, nil
}

func testServer(repo Repository) *httptest.Server {
	return httptest.NewServer(NewServer(repo, nil, 5*time.Second).Handler())
}

func seededRepo() *fakeRepo {
	return &fakeRepo{books: map[string]store.Book{
		"9780134190440": {
			ISBN: "9780134190440", Title: "The Go Programming Language", Author: "Donovan, Kernighan",
			Description: "A thorough guide.", Source: "openlibrary", Year: 2015,
		},
	}}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "ok", payload["status"])
}

func TestGetBookFound(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/books/9780134190440")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var book store.Book
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&book))
	assert.Equal(t, "The Go Programming Language", book.Title)
	assert.Equal(t, "openlibrary", book.Source)
}

func TestGetBookNormalizesISBN(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	// Hyphenated form resolves to the same canonical identifier.
	resp, err := http.Get(ts.URL + "/books/978-0-13-419044-0")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetBookMissing(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/books/9999999999999")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetBookInvalidISBN(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/books/not-an-isbn")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchReturnsMatches(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search?q=go")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload searchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Count)
	require.Len(t, payload.Results, 1)
	assert.Equal(t, "9780134190440", payload.Results[0].ISBN)
}

func TestSearchNoMatchesEmptyList(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search?q=zzzz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload searchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Zero(t, payload.Count)
	assert.NotNil(t, payload.Results)
}

func TestSearchMissingQuery(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRepositoryErrorIs500(t *testing.T) {
	t.Parallel()

	ts := testServer(&fakeRepo{err: assert.AnError})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/books/9780134190440")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRequestIDHeaderSet(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMetricsEndpointExposed(t *testing.T) {
	t.Parallel()

	ts := testServer(seededRepo())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
