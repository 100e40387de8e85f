package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeISBN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "hyphenated isbn13", raw: "978-0-13-468599-1", want: "9780134685991", ok: true},
		{name: "plain isbn10", raw: "0134685997", want: "0134685997", ok: true},
		{name: "check character final", raw: "043942089X", want: "043942089X", ok: true},
		{name: "lowercase check character", raw: "043942089x", want: "043942089X", ok: true},
		{name: "check character mid string", raw: "04394X2089", want: "", ok: false},
		{name: "empty after cleanup", raw: "n/a", want: "", ok: false},
		{name: "blank", raw: "", want: "", ok: false},
		{name: "leading zeros restored", raw: "134685997", want: "0134685997", ok: true},
		{name: "surrounding junk stripped", raw: " ISBN: 978-0134685991 ", want: "9780134685991", ok: true},
		{name: "nonsense length", raw: "978013468599123456", want: "", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeISBN(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "the go programming language", NormalizeText("The Go Programming Language!"))
	assert.Equal(t, "donovan kernighan", NormalizeText("  Donovan,  Kernighan. "))
	assert.Equal(t, "", NormalizeText("   "))
	assert.Equal(t, "c 2nd ed", NormalizeText("C++ (2nd. ed.)"))
}

func TestCleanDescription(t *testing.T) {
	t.Parallel()

	raw := "<p>A &amp; B, the <b>definitive</b>   guide.</p>"
	got := CleanDescription(raw)
	require.NotContains(t, got, "<")
	assert.Equal(t, "A & B, the definitive guide.", got)
	assert.Equal(t, "", CleanDescription(""))
}

func TestCleanAuthor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "kernighan b w", CleanAuthor("Kernighan, B.W. (ed.) 1942"))
	assert.Equal(t, "", CleanAuthor(""))
}
