package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestRecordIngest(t *testing.T) {
	m := &Metrics{startTime: time.Now()}

	m.RecordIngest(10, 4, nil)
	m.RecordIngest(0, 0, errors.New("boom"))

	stats := m.Stats()
	ingestion := stats["ingestion"].(map[string]any)
	assert.Equal(t, uint64(2), ingestion["total"])
	assert.Equal(t, uint64(1), ingestion["errors"])
	assert.Equal(t, uint64(10), ingestion["fine_chunks"])
	assert.Equal(t, uint64(4), ingestion["coarse_chunks"])
}

func TestRecordSearchByMode(t *testing.T) {
	m := &Metrics{startTime: time.Now()}

	m.RecordSearch("fine", nil)
	m.RecordSearch("fine", nil)
	m.RecordSearch("coarse", nil)
	m.RecordSearch("combined", errors.New("down"))

	searches := m.Stats()["searches"].(map[string]any)
	assert.Equal(t, uint64(2), searches["fine"])
	assert.Equal(t, uint64(1), searches["coarse"])
	assert.Equal(t, uint64(1), searches["combined"])
	assert.Equal(t, uint64(1), searches["errors"])
}

func TestExportFormat(t *testing.T) {
	m := &Metrics{startTime: time.Now()}
	m.RecordIngest(3, 1, nil)
	m.RecordCitation(true)
	m.RecordCitation(false)
	m.RecordCleanup(7)

	out := m.Export("scholar", "rag")

	assert.Contains(t, out, "# TYPE scholar_rag_ingests_total counter")
	assert.Contains(t, out, "scholar_rag_ingests_total 1")
	assert.Contains(t, out, "scholar_rag_fine_chunks_written_total 3")
	assert.Contains(t, out, "scholar_rag_citation_hits_total 1")
	assert.Contains(t, out, "scholar_rag_citation_misses_total 1")
	assert.Contains(t, out, "scholar_rag_chunks_cleaned_total 7")
	assert.Contains(t, out, "# TYPE scholar_rag_uptime_seconds gauge")
}

func TestConcurrentRecording(t *testing.T) {
	m := &Metrics{startTime: time.Now()}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordSearch("fine", nil)
			m.RecordEmbedding(time.Millisecond, nil)
		}()
	}
	wg.Wait()

	searches := m.Stats()["searches"].(map[string]any)
	assert.Equal(t, uint64(50), searches["fine"])
	embedding := m.Stats()["embedding"].(map[string]any)
	assert.Equal(t, uint64(50), embedding["calls"])
}

func TestReset(t *testing.T) {
	m := &Metrics{startTime: time.Now()}
	m.RecordIngest(5, 2, nil)
	m.Reset()

	ingestion := m.Stats()["ingestion"].(map[string]any)
	assert.Equal(t, uint64(0), ingestion["total"])
	assert.Equal(t, uint64(0), ingestion["fine_chunks"])
}
