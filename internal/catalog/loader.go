package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Column order of the raw library export. The file carries a header row
// which is skipped; the names here are documentation, not matched.
const (
	colAccDate = iota
	colAccNo
	colTitle
	colISBN
	colAuthor
	colEdition
	colPublisher
	colYear
	colPages
	colClassNo
	catalogColumns
)

// LoadStats reports what happened to the raw rows during loading.
type LoadStats struct {
	Rows       int
	Loaded     int
	Duplicates int
	Invalid    int
}

// Loader reads the raw tabular catalog into canonical Records.
type Loader struct {
	logger *zap.Logger
}

// NewLoader constructs a Loader.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFile opens path and delegates to Load. Library exports are Latin-1
// encoded, so the stream is transcoded before parsing.
func (l *Loader) LoadFile(path string) ([]Record, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			l.logger.Warn("close catalog file", zap.Error(cerr))
		}
	}()
	return l.Load(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
}

// Load parses the catalog CSV, deduplicates by normalized ISBN, and drops
// rows whose identifier cannot be normalized. Dropped rows are counted, not
// silently discarded.
func (l *Loader) Load(r io.Reader) ([]Record, LoadStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		records []Record
		stats   LoadStats
		seen    = make(map[string]bool)
		header  = true
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read catalog row: %w", err)
		}
		if header {
			header = false
			continue
		}
		stats.Rows++
		if len(row) < catalogColumns {
			padded := make([]string, catalogColumns)
			copy(padded, row)
			row = padded
		}

		isbn, ok := NormalizeISBN(row[colISBN])
		if !ok {
			stats.Invalid++
			continue
		}
		if seen[isbn] {
			stats.Duplicates++
			continue
		}
		seen[isbn] = true

		year, _ := strconv.Atoi(NormalizeText(row[colYear]))
		records = append(records, Record{
			ISBN:          isbn,
			Title:         row[colTitle],
			Author:        row[colAuthor],
			Edition:       row[colEdition],
			Publisher:     row[colPublisher],
			Year:          year,
			AccessionDate: row[colAccDate],
			Status:        StatusPending,
		})
	}
	stats.Loaded = len(records)

	l.logger.Info("catalog loaded",
		zap.Int("rows", stats.Rows),
		zap.Int("loaded", stats.Loaded),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("invalid_isbn", stats.Invalid),
	)
	return records, stats, nil
}
