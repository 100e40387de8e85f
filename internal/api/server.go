// Package api exposes the read-only HTTP interface over the books table.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rclib/bookweaver/internal/catalog"
	"github.com/rclib/bookweaver/internal/metrics"
	"github.com/rclib/bookweaver/internal/store"
)

// Repository is the read side of the books table.
type Repository interface {
	GetByISBN(ctx context.Context, isbn string) (store.Book, error)
	Search(ctx context.Context, q string) ([]store.Book, error)
}

// Server wires HTTP handlers to the book repository.
type Server struct {
	router chi.Router
	repo   Repository
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(repo Repository, logger *zap.Logger, requestTimeout time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	metrics.Init()
	s := &Server{repo: repo, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/books/{isbn}", s.getBook)
	r.Get("/search", s.search)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "isbn")
	isbn, ok := catalog.NormalizeISBN(raw)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid isbn")
		return
	}
	book, err := s.repo.GetByISBN(r.Context(), isbn)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "book not found")
		return
	}
	if err != nil {
		s.logger.Error("get book", zap.String("isbn", isbn), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, book)
}

type searchResponse struct {
	Query   string       `json:"query"`
	Count   int          `json:"count"`
	Results []store.Book `json:"results"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	books, err := s.repo.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("search books", zap.String("q", q), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if books == nil {
		books = []store.Book{}
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Query: q, Count: len(books), Results: books})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
