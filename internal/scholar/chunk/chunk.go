// Package chunk implements the dual-granularity chunking pipeline: text
// normalization, sentence-level fine chunks for citation matching and
// passage-level coarse chunks for question answering.
package chunk

// Chunk is one contiguous, sentence-aligned span of a normalized document.
type Chunk struct {
	Text     string
	Position int
	CharLen  int // Unicode characters
	TokenLen int // 0 for fine chunks, filled by the writer
}

// TokenCounter reports the token length of a text. The coarse chunker is
// bounded in tokens as well as characters, so the counter is injected.
type TokenCounter func(text string) int

// FineConfig bounds fine chunks. MinChars defers the MaxSentences close:
// a chunk keeps accumulating sentences past the cap until it reaches
// MinChars. A chunk closed by MaxChars, or the final chunk of a document,
// may still fall below it; such chunks are kept and remain eligible for
// the short-chunk cleanup operation.
type FineConfig struct {
	MinChars     int
	MaxChars     int
	MaxSentences int
}

// DefaultFineConfig returns the fine bounds tuned for citation matching.
func DefaultFineConfig() FineConfig {
	return FineConfig{
		MinChars:     300,
		MaxChars:     500,
		MaxSentences: 3,
	}
}

// CoarseConfig bounds coarse chunks in characters and tokens.
// OverlapChars is the approximate, sentence-aligned tail overlap carried
// into the next chunk.
type CoarseConfig struct {
	MinChars     int
	MaxChars     int
	MinTokens    int
	MaxTokens    int
	OverlapChars int
}

// DefaultCoarseConfig returns the coarse bounds tuned for QA context
// windows.
func DefaultCoarseConfig() CoarseConfig {
	return CoarseConfig{
		MinChars:     1000,
		MaxChars:     1500,
		MinTokens:    300,
		MaxTokens:    512,
		OverlapChars: 200,
	}
}
