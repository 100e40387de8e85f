package source

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// HeuristicDetector decides from static HTML signals whether a page likely
// renders its synopsis client-side and deserves a headless re-fetch.
type HeuristicDetector struct {
	minHTMLBytes int
	keywords     [][]byte
}

// NewHeuristicDetector constructs a Detector with the configured thresholds.
func NewHeuristicDetector(minBytes int, keywords []string) *HeuristicDetector {
	lowered := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(kw)))
	}
	return &HeuristicDetector{
		minHTMLBytes: minBytes,
		keywords:     lowered,
	}
}

// NeedsJS implements Detector. A suspiciously small body, a JS framework
// marker, or a body that parses but holds no text all indicate a
// client-rendered page.
func (d *HeuristicDetector) NeedsJS(body []byte) bool {
	if d == nil || len(body) == 0 {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lowerBody, kw) {
			return true
		}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return len(bytes.TrimSpace([]byte(doc.Find("body").Text()))) == 0
}
