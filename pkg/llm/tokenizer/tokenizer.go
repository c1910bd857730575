// Package tokenizer provides token counting for chunk sizing.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/kart-io/logger"
	"github.com/pkoukk/tiktoken-go"
)

// Encoding used for counting; chosen to match the embedding-era OpenAI
// tokenizers so the coarse token bounds line up with model context math.
const encodingName = "cl100k_base"

// Counter counts tokens with tiktoken, falling back to whitespace word
// counting when the encoding cannot be loaded (offline environments).
// Safe for concurrent use.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// New creates a lazy-initializing token counter.
func New() *Counter {
	return &Counter{}
}

// Count returns the token length of text.
func (c *Counter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			logger.Warnw("tiktoken encoding unavailable, using word counts",
				"encoding", encodingName, "error", err.Error())
			return
		}
		c.enc = enc
	})

	if c.enc == nil {
		return len(strings.Fields(text))
	}
	return len(c.enc.Encode(text, nil, nil))
}
