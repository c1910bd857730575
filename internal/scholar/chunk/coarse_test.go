package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/scholar-x/internal/pkg/textutil"
)

func wordCount(s string) int { return len(strings.Fields(s)) }

// fixedSentences returns n sentences of identical character length.
func fixedSentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		// 95 characters per sentence.
		fmt.Fprintf(&b, "Sentence %02d of the coarse fixture keeps a constant width so chunk arithmetic stays predictable. ", i)
	}
	return strings.TrimSpace(b.String())
}

func TestCoarseEmptyInput(t *testing.T) {
	assert.Nil(t, Coarse("", DefaultCoarseConfig(), wordCount))
	assert.Nil(t, Coarse("  \n ", DefaultCoarseConfig(), nil))
}

func TestCoarseCharBoundAndOverlap(t *testing.T) {
	cfg := CoarseConfig{MinChars: 200, MaxChars: 350, MinTokens: 1, MaxTokens: 10000, OverlapChars: 120}
	chunks := Coarse(fixedSentences(7), cfg, wordCount)
	require.GreaterOrEqual(t, len(chunks), 2)

	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.LessOrEqual(t, c.CharLen, cfg.MaxChars)
		assert.Equal(t, utf8.RuneCountInString(c.Text), c.CharLen)
		assert.Equal(t, wordCount(c.Text), c.TokenLen)
	}

	// The tail sentence of each chunk reappears at the head of the next.
	for i := 1; i < len(chunks); i++ {
		prev := textutil.SplitSentences(chunks[i-1].Text)
		last := prev[len(prev)-1]
		assert.True(t, strings.HasPrefix(chunks[i].Text, last),
			"chunk %d should start with the overlap carried from chunk %d", i, i-1)
	}
}

func TestCoarseTokenBound(t *testing.T) {
	// Token-dense, character-light sentences: 10 words, ~21 chars each.
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("w w w w w w w w w w. ")
	}
	cfg := CoarseConfig{MinChars: 1, MaxChars: 10000, MinTokens: 1, MaxTokens: 25, OverlapChars: 0}

	chunks := Coarse(strings.TrimSpace(b.String()), cfg, wordCount)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenLen, cfg.MaxTokens)
	}
	assert.Equal(t, 20, chunks[0].TokenLen)
	assert.Equal(t, 10, chunks[2].TokenLen)
}

func TestCoarseMergesSubMinimumChunks(t *testing.T) {
	// Token-dense sentences: 20 chars but 10 tokens each, so the token cap
	// closes chunks long before MinChars is reached. Sub-minimum chunks
	// must merge into their predecessor instead of being emitted.
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString("w w w w w w w w w w. ")
	}
	cfg := CoarseConfig{MinChars: 200, MaxChars: 10000, MinTokens: 1, MaxTokens: 25, OverlapChars: 0}

	chunks := Coarse(strings.TrimSpace(b.String()), cfg, wordCount)
	require.Len(t, chunks, 1, "sub-minimum chunks should collapse into one")
	assert.Equal(t, 50, chunks[0].TokenLen)
	for i, c := range chunks {
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, c.CharLen, cfg.MinChars,
				"non-final chunk %d below MinChars", i)
		}
	}
}

func TestCoarseMergeDoesNotShortenNeighbors(t *testing.T) {
	// A long sentence, a token-dense runt, another long sentence. The runt
	// is flushed alone by the token cap and must merge backward; the
	// merged chunk may exceed MaxChars because the minimums win.
	long := strings.Repeat("alpha ", 34) + "ends." // 209 chars, 35 tokens
	runt := "w w w w w w w w w w."                 // 20 chars, 10 tokens
	cfg := CoarseConfig{MinChars: 100, MaxChars: 220, MinTokens: 1, MaxTokens: 40, OverlapChars: 0}

	chunks := Coarse(long+" "+runt+" "+long, cfg, wordCount)
	require.Len(t, chunks, 2)
	assert.Equal(t, long+" "+runt, chunks[0].Text)
	assert.Equal(t, long, chunks[1].Text)
	assert.Greater(t, chunks[0].CharLen, cfg.MaxChars)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, c.CharLen, cfg.MinChars)
			assert.GreaterOrEqual(t, c.TokenLen, cfg.MinTokens)
		}
	}
}

func TestCoarseOversizedSentences(t *testing.T) {
	cfg := CoarseConfig{MinChars: 100, MaxChars: 150, MinTokens: 1, MaxTokens: 10000, OverlapChars: 50}
	s1 := strings.Repeat("alpha ", 40) + "ends."  // ~245 chars, one sentence
	s2 := strings.Repeat("omega ", 40) + "stops." // ~246 chars, one sentence

	chunks := Coarse(s1+" "+s2, cfg, wordCount)
	require.Len(t, chunks, 2)
	assert.Equal(t, s1, chunks[0].Text)
	assert.Equal(t, s2, chunks[1].Text)
	assert.Greater(t, chunks[0].CharLen, cfg.MaxChars)
}

func TestCoarseSingleShortInput(t *testing.T) {
	chunks := Coarse("A single modest sentence.", DefaultCoarseConfig(), wordCount)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A single modest sentence.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Position)
}

func TestCoarseNilCounterFallsBackToWords(t *testing.T) {
	chunks := Coarse("One two three. Four five.", CoarseConfig{MaxChars: 1000, MaxTokens: 1000}, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, 5, chunks[0].TokenLen)
}

func TestOverlapTail(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		overlap int
		want    []string
	}{
		{"nil for single sentence", []string{"only."}, 200, nil},
		{"nil for zero budget", []string{"a.", "b."}, 0, nil},
		{"takes fitting tail", []string{"first one.", "second one.", "third one."}, 25, []string{"second one.", "third one."}},
		{"budget smaller than last sentence", []string{"first one.", "a rather long closing sentence."}, 10, nil},
		{"never consumes whole chunk", []string{"tiny.", "wee."}, 500, []string{"wee."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overlapTail(tt.in, tt.overlap))
		})
	}
}
