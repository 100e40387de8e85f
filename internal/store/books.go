// Package store provides Postgres-backed persistence for enriched records.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rclib/bookweaver/internal/catalog"
)

// ErrNotFound is returned when no book matches the requested ISBN.
var ErrNotFound = errors.New("book not found")

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool for the books table.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// Book is one row of the books table.
type Book struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Description   string `json:"description"`
	Source        string `json:"source"`
	Year          int    `json:"year"`
	AccessionDate string `json:"acc_date"`
	Publisher     string `json:"publisher"`
}

// BookStore writes and reads enriched records in Postgres.
type BookStore struct {
	db    DB
	table string
}

// New connects a pool from config and wraps it in a BookStore.
func New(ctx context.Context, cfg Config) (*BookStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &BookStore{db: pool, table: table}, nil
}

// NewWithDB constructs a store from an existing connection, primarily for
// testing.
func NewWithDB(db DB, table string) (*BookStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &BookStore{db: db, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "books"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *BookStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// EnsureSchema creates the books table if it does not exist.
func (s *BookStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	isbn TEXT UNIQUE NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	year INT NOT NULL DEFAULT 0,
	acc_date TEXT NOT NULL DEFAULT '',
	publisher TEXT NOT NULL DEFAULT ''
)`, s.table)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

// InsertRecords bulk-inserts records, skipping ISBNs already present.
// Returns the number of rows actually inserted.
func (s *BookStore) InsertRecords(ctx context.Context, records []catalog.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (isbn, title, author, description, source, year, acc_date, publisher)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (isbn) DO NOTHING`, s.table)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query, r.ISBN, r.Title, r.Author, r.Description, r.Source, r.Year, r.AccessionDate, r.Publisher)
	}

	results := s.db.SendBatch(ctx, batch)
	var inserted int64
	for range records {
		tag, err := results.Exec()
		if err != nil {
			closeErr := results.Close()
			if closeErr != nil {
				return inserted, fmt.Errorf("insert book: %w (close batch: %v)", err, closeErr)
			}
			return inserted, fmt.Errorf("insert book: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return inserted, fmt.Errorf("close batch: %w", err)
	}
	return inserted, nil
}

const bookColumns = "isbn, title, author, description, source, year, acc_date, publisher"

// GetByISBN fetches one book; ErrNotFound if absent.
func (s *BookStore) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE isbn = $1", bookColumns, s.table)
	var b Book
	err := s.db.QueryRow(ctx, query, isbn).Scan(
		&b.ISBN, &b.Title, &b.Author, &b.Description, &b.Source, &b.Year, &b.AccessionDate, &b.Publisher,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("select book: %w", err)
	}
	return b, nil
}

// SearchLimit caps result sets for substring search.
const SearchLimit = 20

// likeEscaper neutralizes LIKE metacharacters so the query term matches
// literally. Postgres treats backslash as the default escape character.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns up to SearchLimit books whose title or author contains the
// query, case-insensitively, in storage order.
func (s *BookStore) Search(ctx context.Context, q string) ([]Book, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE title ILIKE $1 OR author ILIKE $1 ORDER BY id LIMIT %d",
		bookColumns, s.table, SearchLimit,
	)
	rows, err := s.db.Query(ctx, query, "%"+likeEscaper.Replace(q)+"%")
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(
			&b.ISBN, &b.Title, &b.Author, &b.Description, &b.Source, &b.Year, &b.AccessionDate, &b.Publisher,
		); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book rows: %w", err)
	}
	return books, nil
}
