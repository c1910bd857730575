package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/kart-io/scholar-x/internal/pkg/textutil"
)

// Coarse splits normalized text into passage-sized chunks bounded in both
// characters and tokens. Sentences accumulate until appending the next one
// would exceed MaxChars or MaxTokens; the closed chunk's sentence-aligned
// tail (up to OverlapChars) is carried into the next chunk for context
// continuity. An oversized single sentence becomes its own chunk. A
// trailing chunk consisting only of carried overlap is not emitted.
//
// Chunks that fall below MinChars or MinTokens are merged into their
// predecessor, so only the final chunk of a document may be short. A merge
// appends just the sentences the short chunk contributed, never its
// carried overlap, and may push the merged chunk past the upper bounds:
// when the caps and the minimums conflict the minimums win.
func Coarse(text string, cfg CoarseConfig, count TokenCounter) []Chunk {
	if count == nil {
		count = func(s string) int { return len(strings.Fields(s)) }
	}

	sentences := textutil.SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	// First pass: greedy accumulation bounded by the caps. Each raw chunk
	// remembers which of its sentences are fresh (not carried as overlap),
	// so a later merge does not duplicate the overlap.
	type rawChunk struct {
		sentences []string
		fresh     []string
	}

	var raws []rawChunk
	var cur []string
	carried := 0
	curChars, curTokens := 0, 0

	flush := func() {
		all := make([]string, len(cur))
		copy(all, cur)
		fresh := make([]string, len(cur)-carried)
		copy(fresh, cur[carried:])
		raws = append(raws, rawChunk{sentences: all, fresh: fresh})
	}

	for _, s := range sentences {
		sChars := utf8.RuneCountInString(s)
		sTokens := count(s)

		if len(cur) > 0 && (curChars+1+sChars > cfg.MaxChars || curTokens+sTokens > cfg.MaxTokens) {
			flush()
			cur = overlapTail(cur, cfg.OverlapChars)
			carried = len(cur)
			curChars, curTokens = 0, 0
			for i, o := range cur {
				if i > 0 {
					curChars++
				}
				curChars += utf8.RuneCountInString(o)
				curTokens += count(o)
			}
		}

		if len(cur) > 0 {
			curChars++
		}
		curChars += sChars
		curTokens += sTokens
		cur = append(cur, s)
	}
	if len(cur) > carried {
		flush()
	}

	belowMin := func(sentences []string) bool {
		joined := strings.Join(sentences, " ")
		return utf8.RuneCountInString(joined) < cfg.MinChars || count(joined) < cfg.MinTokens
	}

	// Second pass: a sub-minimum chunk merges into its predecessor, and a
	// predecessor still below the minimums keeps absorbing fresh sentences.
	// Only the final chunk may end up short.
	var merged [][]string
	for i, rc := range raws {
		if len(merged) > 0 {
			last := len(merged) - 1
			subMin := belowMin(rc.sentences) && i < len(raws)-1
			if subMin || belowMin(merged[last]) {
				merged[last] = append(merged[last], rc.fresh...)
				continue
			}
		}
		merged = append(merged, rc.sentences)
	}

	chunks := make([]Chunk, len(merged))
	for i, group := range merged {
		joined := strings.Join(group, " ")
		chunks[i] = Chunk{
			Text:     joined,
			Position: i,
			CharLen:  utf8.RuneCountInString(joined),
			TokenLen: count(joined),
		}
	}
	return chunks
}

// overlapTail selects whole sentences from the end of a closed chunk
// totaling at most overlapChars. At least one sentence of the chunk is
// always consumed, so chunking makes progress even with tiny bounds.
func overlapTail(sentences []string, overlapChars int) []string {
	if overlapChars <= 0 || len(sentences) < 2 {
		return nil
	}

	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i > 0; i-- {
		n := utf8.RuneCountInString(sentences[i])
		if total > 0 {
			n++
		}
		if total+n > overlapChars {
			break
		}
		total += n
		start = i
	}

	if start == len(sentences) {
		return nil
	}
	tail := make([]string, len(sentences)-start)
	copy(tail, sentences[start:])
	return tail
}
