package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/kart-io/scholar-x/internal/pkg/textutil"
)

// Fine splits normalized text into sentence-aligned fine chunks. A chunk
// closes when appending the next sentence would push it past MaxChars, or
// when it already holds MaxSentences sentences and has reached MinChars:
// the sentence cap is deferred while the chunk is still below the minimum,
// so only a MaxChars close or the end of the document can leave a chunk
// short. Sentences are never split: a single sentence longer than MaxChars
// becomes its own chunk. The final chunk may be arbitrarily short.
// Positions are assigned 0..n-1 in text order.
func Fine(text string, cfg FineConfig) []Chunk {
	sentences := textutil.SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var cur []string
	curLen := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		joined := strings.Join(cur, " ")
		chunks = append(chunks, Chunk{
			Text:     joined,
			Position: len(chunks),
			CharLen:  utf8.RuneCountInString(joined),
		})
		cur = cur[:0]
		curLen = 0
	}

	for _, s := range sentences {
		sLen := utf8.RuneCountInString(s)
		if len(cur) > 0 && (curLen+1+sLen > cfg.MaxChars ||
			(len(cur) >= cfg.MaxSentences && curLen >= cfg.MinChars)) {
			flush()
		}
		if len(cur) == 0 {
			curLen = sLen
		} else {
			curLen += 1 + sLen
		}
		cur = append(cur, s)
	}
	flush()

	return chunks
}
