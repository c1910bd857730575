package biz

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/kart-io/scholar-x/internal/scholar/store"
	"github.com/kart-io/scholar-x/pkg/llm"
)

// fakeEmbedder produces deterministic unit vectors: identical texts get
// identical embeddings, so exact-text queries score 1.0 against a memory
// store.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = embedText(text)
	}
	return vecs, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

func embedText(text string) []float32 {
	vec := make([]float32, 8)
	var norm float64
	for i := range vec {
		h := fnv.New64a()
		fmt.Fprintf(h, "%d:%s", i, text)
		// Map the hash onto [-1, 1].
		vec[i] = float32(int64(h.Sum64())%1000) / 1000
		norm += float64(vec[i]) * float64(vec[i])
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// failingStore wraps a VectorStore and fails Insert on one collection.
type failingStore struct {
	store.VectorStore
	failInsertOn string
}

func (f *failingStore) Insert(ctx context.Context, collection string, records []*store.Record) error {
	if collection == f.failInsertOn {
		return errors.New("insert rejected")
	}
	return f.VectorStore.Insert(ctx, collection, records)
}

// stubStore returns canned search hits per collection.
type stubStore struct {
	store.VectorStore
	hits map[string][]*store.Hit
	err  error
}

func (s *stubStore) Search(_ context.Context, collection string, _ []float32, topK int) ([]*store.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	hits := s.hits[collection]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// fakeChat echoes a canned answer and captures the prompt it was given.
type fakeChat struct {
	mu     sync.Mutex
	prompt string
	reply  string
	err    error
}

func (f *fakeChat) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	f.prompt = prompt
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return f.reply, f.err
}

func (f *fakeChat) Name() string { return "fake-chat" }
