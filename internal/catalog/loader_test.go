package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalogHeader = "Acc_Date,Acc_No,Title,ISBN,Author_Editor,Edition_Volume,Place_Publisher,Year,Pages,Class_No\n"

func TestLoaderDropsInvalidAndDuplicateISBNs(t *testing.T) {
	t.Parallel()

	csvData := catalogHeader +
		"2021-01-05,1001,The Go Programming Language,978-0-13-419044-0,Donovan; Kernighan,1st,Addison-Wesley,2015,380,005.13\n" +
		"2021-01-06,1002,Duplicate Row,9780134190440,Donovan; Kernighan,1st,Addison-Wesley,2015,380,005.13\n" +
		"2021-01-07,1003,No Identifier,not-an-isbn,Unknown,,,2010,120,000\n" +
		"2021-01-08,1004,Clean Code,9780132350884,Martin,1st,Prentice Hall,2008,464,005.1\n"

	loader := NewLoader(zap.NewNop())
	records, stats, err := loader.Load(strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Invalid)

	require.Len(t, records, 2)
	assert.Equal(t, "9780134190440", records[0].ISBN)
	assert.Equal(t, "The Go Programming Language", records[0].Title)
	assert.Equal(t, 2015, records[0].Year)
	assert.Equal(t, StatusPending, records[0].Status)
	assert.Equal(t, "9780132350884", records[1].ISBN)
}

func TestLoaderToleratesShortRows(t *testing.T) {
	t.Parallel()

	csvData := catalogHeader +
		"2021-02-01,2001,Short Row,0131103628,Kernighan\n"

	loader := NewLoader(nil)
	records, stats, err := loader.Load(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].Year)
	assert.Equal(t, "Kernighan", records[0].Author)
	assert.Equal(t, 1, stats.Loaded)
}

func TestCountStatuses(t *testing.T) {
	t.Parallel()

	records := []Record{
		{Status: StatusResolved},
		{Status: StatusResolved},
		{Status: StatusNotFound},
		{Status: StatusUnavailable},
		{Status: StatusPending},
	}
	c := Count(records)
	assert.Equal(t, 5, c.Total)
	assert.Equal(t, 2, c.Resolved)
	assert.Equal(t, 1, c.NotFound)
	assert.Equal(t, 1, c.Unavailable)
	assert.Equal(t, 1, c.Pending)
}
