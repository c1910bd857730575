package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only",
			text: "   \n\t  ",
			want: nil,
		},
		{
			name: "single sentence",
			text: "Transformers dominate sequence modeling.",
			want: []string{"Transformers dominate sequence modeling."},
		},
		{
			name: "single sentence without terminator",
			text: "a fragment without punctuation",
			want: []string{"a fragment without punctuation"},
		},
		{
			name: "multiple sentences",
			text: "First sentence. Second sentence! Third sentence?",
			want: []string{"First sentence.", "Second sentence!", "Third sentence?"},
		},
		{
			name: "terminator run stays attached",
			text: "Really?! Yes... And then some.",
			want: []string{"Really?!", "Yes...", "And then some."},
		},
		{
			name: "no split without trailing whitespace",
			text: "See section 3.2 for details.",
			want: []string{"See section 3.2 for details."},
		},
		{
			name: "newlines count as whitespace",
			text: "Line one ends here.\nLine two follows.",
			want: []string{"Line one ends here.", "Line two follows."},
		},
		{
			name: "trailing fragment kept",
			text: "Complete sentence. trailing fragment",
			want: []string{"Complete sentence.", "trailing fragment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestSplitSentencesReconstructs(t *testing.T) {
	text := "One sentence here. Another one there! A third? Yes."
	got := SplitSentences(text)
	assert.Equal(t, text, strings.Join(got, " "))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{"identical", []float32{1, 0, 1}, []float32{1, 0, 1}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestHashString(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", HashString(""))
	assert.Equal(t, HashString("arxiv.org/abs/1706.03762"), HashString("arxiv.org/abs/1706.03762"))
	assert.NotEqual(t, HashString("a"), HashString("b"))
	assert.Len(t, HashString("anything"), 32)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "exact", TruncateString("exact", 5))
	assert.Equal(t, "lon", TruncateString("longer", 3))
	assert.Equal(t, "héll", TruncateString("héllo", 4))
}

func TestSnippet(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "short text", Snippet("short text", 300, 250))
	})

	t.Run("long text cut at word boundary", func(t *testing.T) {
		words := strings.Repeat("word ", 100) // 500 chars
		got := Snippet(words, 300, 250)
		assert.True(t, strings.HasSuffix(got, "..."))
		assert.LessOrEqual(t, len(got), 303)
		assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "..."), "wor"))
	})

	t.Run("within soft limit not ellipsized", func(t *testing.T) {
		s := strings.Repeat("a", 200)
		assert.Equal(t, s, Snippet(s, 300, 250))
	})
}
