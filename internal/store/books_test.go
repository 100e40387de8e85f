package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rclib/bookweaver/internal/catalog"
)

func TestEnsureSchemaCreatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithDB(mock, "books")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS books").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRecordsSkipsConflicts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithDB(mock, "books")
	require.NoError(t, err)

	records := []catalog.Record{
		{ISBN: "9780134190440", Title: "The Go Programming Language", Author: "Donovan", Description: "A thorough guide.", Source: "openlibrary", Year: 2015, AccessionDate: "12/01/2016", Publisher: "Addison-Wesley"},
		{ISBN: "9780262033848", Title: "Introduction to Algorithms", Author: "Cormen", Year: 2009},
	}

	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO books").
		WithArgs("9780134190440", "The Go Programming Language", "Donovan", "A thorough guide.", "openlibrary", 2015, "12/01/2016", "Addison-Wesley").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO books").
		WithArgs("9780262033848", "Introduction to Algorithms", "Cormen", "", "", 2009, "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 0)) // already present

	inserted, err := s.InsertRecords(context.Background(), records)
	require.NoError(t, err)
	assert.EqualValues(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRecordsEmptySet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithDB(mock, "")
	require.NoError(t, err)

	inserted, err := s.InsertRecords(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestGetByISBNFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithDB(mock, "books")
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"isbn", "title", "author", "description", "source", "year", "acc_date", "publisher"}).
		AddRow("9780134190440", "The Go Programming Language", "Donovan", "A thorough guide.", "openlibrary", 2015, "12/01/2016", "Addison-Wesley")
	mock.ExpectQuery("SELECT .+ FROM books WHERE isbn").
		WithArgs("9780134190440").
		WillReturnRows(rows)

	book, err := s.GetByISBN(context.Background(), "9780134190440")
	require.NoError(t, err)
	assert.Equal(t, "The Go Programming Language", book.Title)
	assert.Equal(t, "openlibrary", book.Source)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByISBNMissing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithDB(mock, "books")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM books WHERE isbn").
		WithArgs("0000000000").
		WillReturnRows(pgxmock.NewRows([]string{"isbn", "title", "author", "description", "source", "year", "acc_date", "publisher"}))

	_, err = s.GetByISBN(context.Background(), "0000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchMatchesTitleOrAuthor(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithDB(mock, "books")
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"isbn", "title", "author", "description", "source", "year", "acc_date", "publisher"}).
		AddRow("9780134190440", "The Go Programming Language", "Donovan", "", "", 2015, "", "").
		AddRow("9781491941959", "Go in Practice", "Butcher", "", "", 2016, "", "")
	mock.ExpectQuery("SELECT .+ FROM books WHERE title ILIKE").
		WithArgs("%go%").
		WillReturnRows(rows)

	books, err := s.Search(context.Background(), "go")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "9780134190440", books[0].ISBN)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEscapesLikeMetacharacters(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithDB(mock, "books")
	require.NoError(t, err)

	// A bare wildcard must match books literally containing "%", not every row.
	mock.ExpectQuery("SELECT .+ FROM books WHERE title ILIKE").
		WithArgs(`%50\% off\_sale\\%`).
		WillReturnRows(pgxmock.NewRows([]string{"isbn", "title", "author", "description", "source", "year", "acc_date", "publisher"}))

	books, err := s.Search(context.Background(), `50% off_sale\`)
	require.NoError(t, err)
	assert.Empty(t, books)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidTableNameRejected(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithDB(mock, "books; DROP TABLE books")
	assert.Error(t, err)
}
