package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
}

func (s *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embs, err := s.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

func (s *stubProvider) Chat(context.Context, []Message) (string, error) {
	return "chat reply", nil
}

func (s *stubProvider) Generate(context.Context, string, string) (string, error) {
	return "generated reply", nil
}

func (s *stubProvider) Name() string { return s.name }

func TestProviderRegistry(t *testing.T) {
	RegisterProvider("stub-full", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "stub-full"}, nil
	})

	p, err := NewProvider("stub-full", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub-full", p.Name())

	_, err = NewProvider("does-not-exist", nil)
	assert.Error(t, err)
}

func TestEmbeddingProviderFallsBackToFullProvider(t *testing.T) {
	RegisterProvider("stub-fallback", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "stub-fallback"}, nil
	})

	p, err := NewEmbeddingProvider("stub-fallback", nil)
	require.NoError(t, err)

	emb, err := p.EmbedSingle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, emb)
}

func TestDedicatedFactoryWinsOverFullProvider(t *testing.T) {
	RegisterProvider("stub-both", func(map[string]any) (Provider, error) {
		return &stubProvider{name: "full"}, nil
	})
	RegisterChatProvider("stub-both", func(map[string]any) (ChatProvider, error) {
		return &stubProvider{name: "dedicated"}, nil
	})

	p, err := NewChatProvider("stub-both", nil)
	require.NoError(t, err)
	assert.Equal(t, "dedicated", p.Name())
}

func TestFactoryErrorPropagates(t *testing.T) {
	RegisterEmbeddingProvider("stub-broken", func(map[string]any) (EmbeddingProvider, error) {
		return nil, fmt.Errorf("bad config")
	})

	_, err := NewEmbeddingProvider("stub-broken", nil)
	assert.EqualError(t, err, "bad config")
}

func TestListProvidersIncludesRegistered(t *testing.T) {
	RegisterChatProvider("stub-listed", func(map[string]any) (ChatProvider, error) {
		return &stubProvider{name: "stub-listed"}, nil
	})
	assert.Contains(t, ListProviders(), "stub-listed")
}
