package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicDetectorNeedsJS(t *testing.T) {
	t.Parallel()

	padding := strings.Repeat("<p>filler content</p>", 200)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "empty body", body: "", want: false},
		{name: "tiny body", body: "<html></html>", want: true},
		{name: "framework marker", body: "<html><body>" + padding + "window.__APOLLO_STATE__</body></html>", want: true},
		{name: "plain content page", body: "<html><body>" + padding + "</body></html>", want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := NewHeuristicDetector(100, []string{"__NEXT_DATA__", "window.__APOLLO_STATE__"})
			assert.Equal(t, tc.want, d.NeedsJS([]byte(tc.body)))
		})
	}
}

func TestHeuristicDetectorNilSafe(t *testing.T) {
	t.Parallel()

	var d *HeuristicDetector
	assert.False(t, d.NeedsJS([]byte("<html></html>")))
}

func TestChromedpRendererDisabled(t *testing.T) {
	t.Parallel()

	_, err := NewChromedpRenderer(RendererConfig{MaxParallel: 0}, nil)
	assert.ErrorIs(t, err, ErrRendererDisabled)
}
