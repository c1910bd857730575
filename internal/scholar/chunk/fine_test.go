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

func TestFineEmptyInput(t *testing.T) {
	assert.Nil(t, Fine("", DefaultFineConfig()))
	assert.Nil(t, Fine("   \n\n  ", DefaultFineConfig()))
}

func TestFineGreedyAccumulation(t *testing.T) {
	cfg := FineConfig{MinChars: 10, MaxChars: 60, MaxSentences: 3}
	text := "Sentence one is short. Sentence two is also short. Sentence three is short too."

	chunks := Fine(text, cfg)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Sentence one is short. Sentence two is also short.", chunks[0].Text)
	assert.Equal(t, "Sentence three is short too.", chunks[1].Text)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, 50, chunks[0].CharLen)
}

func TestFineSentenceCountBound(t *testing.T) {
	cfg := FineConfig{MinChars: 1, MaxChars: 500, MaxSentences: 3}
	text := "A one. B two. C three. D four."

	chunks := Fine(text, cfg)
	require.Len(t, chunks, 2)
	assert.Equal(t, "A one. B two. C three.", chunks[0].Text)
	assert.Equal(t, "D four.", chunks[1].Text)
}

func TestFineMinCharsDefersSentenceCap(t *testing.T) {
	// 8-character sentences: the sentence cap alone would close at 2, but
	// the chunk keeps accumulating until it reaches MinChars.
	var b strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "Tick %02d. ", i)
	}
	cfg := FineConfig{MinChars: 60, MaxChars: 200, MaxSentences: 2}

	chunks := Fine(strings.TrimSpace(b.String()), cfg)
	require.Len(t, chunks, 2)
	assert.Len(t, textutil.SplitSentences(chunks[0].Text), 7)
	assert.GreaterOrEqual(t, chunks[0].CharLen, cfg.MinChars)
	assert.LessOrEqual(t, chunks[0].CharLen, cfg.MaxChars)
	// Only the end of the document leaves a short chunk.
	assert.Len(t, textutil.SplitSentences(chunks[1].Text), 3)
	assert.Less(t, chunks[1].CharLen, cfg.MinChars)
}

func TestFineOversizedSentenceIsOwnChunk(t *testing.T) {
	cfg := FineConfig{MinChars: 10, MaxChars: 60, MaxSentences: 3}
	long := strings.Repeat("verylongword ", 9) + "ends." // well past 60 chars
	text := "Short lead. " + long + " Short tail."

	chunks := Fine(text, cfg)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Short lead.", chunks[0].Text)
	assert.Equal(t, long, chunks[1].Text)
	assert.Greater(t, chunks[1].CharLen, cfg.MaxChars)
	assert.Equal(t, "Short tail.", chunks[2].Text)
}

func TestFineNeverSplitsSentences(t *testing.T) {
	text := "Alpha beta gamma delta. Epsilon zeta eta theta! Iota kappa lambda? Mu nu xi omicron. Pi rho sigma tau."
	chunks := Fine(text, FineConfig{MinChars: 10, MaxChars: 50, MaxSentences: 2})

	// No overlap: concatenating the chunks reconstructs the sentence stream.
	var parts []string
	for _, c := range chunks {
		parts = append(parts, c.Text)
	}
	assert.Equal(t, strings.Join(textutil.SplitSentences(text), " "), strings.Join(parts, " "))

	// Every chunk is itself a run of complete sentences.
	for _, c := range chunks {
		for _, s := range textutil.SplitSentences(c.Text) {
			assert.Contains(t, text, s)
		}
	}
}

func TestFineBoundsAndPositions(t *testing.T) {
	// 20 sentences of exactly 50 characters each.
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Sentence number %02d pads out to fifty characterss. ", i)
	}
	text := strings.TrimSpace(b.String())
	cfg := FineConfig{MinChars: 300, MaxChars: 500, MaxSentences: 100}

	chunks := Fine(text, cfg)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, utf8.RuneCountInString(c.Text), c.CharLen)
		assert.LessOrEqual(t, c.CharLen, cfg.MaxChars)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, c.CharLen, cfg.MinChars)
		}
	}
}

func TestFineDefaultsOnRealisticProse(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Paragraph sentence %d discusses attention mechanisms and their effect on long range dependency modeling in transformer architectures. ", i)
	}
	chunks := Fine(strings.TrimSpace(b.String()), DefaultFineConfig())
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.LessOrEqual(t, c.CharLen, 500)
		assert.LessOrEqual(t, len(textutil.SplitSentences(c.Text)), 3)
	}
}
