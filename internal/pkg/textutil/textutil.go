// Package textutil provides text helpers shared by the chunking and
// retrieval layers.
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitSentences splits text into sentences at ., ! or ? followed by
// whitespace. Terminators stay attached to their sentence. Abbreviation
// handling is intentionally not attempted; academic prose tolerates the
// occasional over-split.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		// Absorb a run of terminators ("?!", "...").
		j := i
		for j+1 < len(runes) && isTerminator(runes[j+1]) {
			j++
		}
		if j+1 >= len(runes) || !unicode.IsSpace(runes[j+1]) {
			i = j
			continue
		}
		if s := strings.TrimSpace(string(runes[start : j+1])); s != "" {
			sentences = append(sentences, s)
		}
		k := j + 1
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		start = k
		i = k - 1
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or zero-norm inputs yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashString returns the hex-encoded MD5 of s. Used to derive stable
// document ids from source URLs.
func HashString(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// Snippet returns a short preview of s cut at maxChars characters. If the
// cut result still exceeds softChars, it is pulled back to the last space
// and an ellipsis is appended so previews never end mid-word.
func Snippet(s string, maxChars, softChars int) string {
	out := TruncateString(s, maxChars)
	if utf8.RuneCountInString(out) <= softChars {
		return out
	}
	if i := strings.LastIndex(out, " "); i > 0 {
		out = out[:i]
	}
	return out + "..."
}
