// Package catalog defines the canonical book record model and the
// normalization helpers used to key records across data sources.
package catalog

// Status represents the description-enrichment state of a record.
type Status string

// Status values carried through checkpoints and the final output.
const (
	StatusPending     Status = "pending"
	StatusResolved    Status = "resolved"
	StatusNotFound    Status = "not_found"
	StatusUnavailable Status = "unavailable"
)

// Terminal reports whether a record in this status is done with the
// fallback chain. Unavailable records re-enter the chain on resume.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusNotFound
}

// Record is one catalog row after normalization. ISBN is always in
// canonical form; rows whose ISBN cannot be normalized never become
// Records.
type Record struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Edition       string `json:"edition"`
	Publisher     string `json:"publisher"`
	Year          int    `json:"year"`
	AccessionDate string `json:"acc_date"`
	Status        Status `json:"status"`
	Description   string `json:"description,omitempty"`
	Source        string `json:"source,omitempty"`
}

// Resolve commits a successful description fetch. The description must be
// non-empty; Status and Source are set together so a Resolved record always
// carries both.
func (r *Record) Resolve(description, source string) {
	r.Status = StatusResolved
	r.Description = description
	r.Source = source
}

// Counts aggregates records per terminal state for run summaries.
type Counts struct {
	Total       int
	Pending     int
	Resolved    int
	NotFound    int
	Unavailable int
}

// Count tallies statuses over a record slice.
func Count(records []Record) Counts {
	c := Counts{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case StatusResolved:
			c.Resolved++
		case StatusNotFound:
			c.NotFound++
		case StatusUnavailable:
			c.Unavailable++
		default:
			c.Pending++
		}
	}
	return c
}
