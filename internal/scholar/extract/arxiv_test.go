package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArxivID(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"bare id", "1706.03762", "1706.03762"},
		{"five digit id", "2301.12345", "2301.12345"},
		{"versioned id", "1706.03762v5", "1706.03762"},
		{"abs url", "https://arxiv.org/abs/1706.03762", "1706.03762"},
		{"pdf url", "https://arxiv.org/pdf/2301.12345v2", "2301.12345"},
		{"plain url", "https://example.com/paper.html", ""},
		{"empty", "", ""},
		{"too few digits", "123.4567", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArxivID(tt.source))
		})
	}
}
