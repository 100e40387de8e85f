package checkpoint

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rclib/bookweaver/internal/catalog"
)

var snapshotHeader = []string{
	"isbn", "title", "author", "edition", "publisher",
	"year", "acc_date", "status", "description", "source",
}

// encodeRecords renders a snapshot as CSV. Every record field survives the
// round trip so a resumed run sees exactly the committed state.
func encodeRecords(records []catalog.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(snapshotHeader); err != nil {
		return nil, fmt.Errorf("write snapshot header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ISBN, r.Title, r.Author, r.Edition, r.Publisher,
			strconv.Itoa(r.Year), r.AccessionDate, string(r.Status), r.Description, r.Source,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write snapshot row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRecords parses a snapshot back into records.
func decodeRecords(r io.Reader) ([]catalog.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(snapshotHeader)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if len(header) != len(snapshotHeader) || header[0] != snapshotHeader[0] {
		return nil, fmt.Errorf("unrecognized snapshot header")
	}

	var records []catalog.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot row: %w", err)
		}
		year, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("snapshot year for %s: %w", row[0], err)
		}
		records = append(records, catalog.Record{
			ISBN:          row[0],
			Title:         row[1],
			Author:        row[2],
			Edition:       row[3],
			Publisher:     row[4],
			Year:          year,
			AccessionDate: row[6],
			Status:        catalog.Status(row[7]),
			Description:   row[8],
			Source:        row[9],
		})
	}
	return records, nil
}
