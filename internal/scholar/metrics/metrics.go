// Package metrics collects business metrics for the scholar service.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds the service counters. All counters are updated with
// atomics; durations share one mutex since they are float sums.
type Metrics struct {
	// Ingestion.
	ingestsTotal        uint64
	ingestErrors        uint64
	fineChunksWritten   uint64
	coarseChunksWritten uint64

	// Searches by mode.
	searchesFine     uint64
	searchesCoarse   uint64
	searchesCombined uint64
	searchErrors     uint64

	// Citation decisions.
	citationHits   uint64
	citationMisses uint64

	// Embedding calls.
	embedCallsTotal   uint64
	embedErrors       uint64
	embedDurationSecs float64

	// Answer synthesis.
	answersTotal uint64
	answerErrors uint64

	// Maintenance.
	chunksCleaned uint64

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	global *Metrics
	once   sync.Once
)

// Get returns the global metrics instance.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordIngest records one ingestion attempt and the chunk counts it
// wrote.
func (m *Metrics) RecordIngest(fineChunks, coarseChunks int, err error) {
	atomic.AddUint64(&m.ingestsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.fineChunksWritten, uint64(fineChunks))
	atomic.AddUint64(&m.coarseChunksWritten, uint64(coarseChunks))
}

// RecordSearch records one context search by mode.
func (m *Metrics) RecordSearch(mode string, err error) {
	switch mode {
	case "fine":
		atomic.AddUint64(&m.searchesFine, 1)
	case "coarse":
		atomic.AddUint64(&m.searchesCoarse, 1)
	case "combined":
		atomic.AddUint64(&m.searchesCombined, 1)
	}
	if err != nil {
		atomic.AddUint64(&m.searchErrors, 1)
	}
}

// RecordCitation records a citation decision.
func (m *Metrics) RecordCitation(match bool) {
	if match {
		atomic.AddUint64(&m.citationHits, 1)
	} else {
		atomic.AddUint64(&m.citationMisses, 1)
	}
}

// RecordEmbedding records one embedding provider call.
func (m *Metrics) RecordEmbedding(duration time.Duration, err error) {
	atomic.AddUint64(&m.embedCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.embedErrors, 1)
		return
	}
	m.durationMu.Lock()
	m.embedDurationSecs += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordAnswer records one answer synthesis.
func (m *Metrics) RecordAnswer(err error) {
	atomic.AddUint64(&m.answersTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.answerErrors, 1)
	}
}

// RecordCleanup records chunks removed by the short-chunk cleanup.
func (m *Metrics) RecordCleanup(removed int) {
	atomic.AddUint64(&m.chunksCleaned, uint64(removed))
}

// Export renders the metrics in Prometheus text exposition format.
func (m *Metrics) Export(namespace, subsystem string) string {
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	m.durationMu.Lock()
	embedDuration := m.embedDurationSecs
	m.durationMu.Unlock()

	var sb strings.Builder
	counter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n\n", prefix, name, value))
	}
	gauge := func(name, help string, value float64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s gauge\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %.6f\n\n", prefix, name, value))
	}

	counter("ingests_total", "Total number of ingestion attempts.", atomic.LoadUint64(&m.ingestsTotal))
	counter("ingest_errors_total", "Number of failed ingestions.", atomic.LoadUint64(&m.ingestErrors))
	counter("fine_chunks_written_total", "Fine chunks written.", atomic.LoadUint64(&m.fineChunksWritten))
	counter("coarse_chunks_written_total", "Coarse chunks written.", atomic.LoadUint64(&m.coarseChunksWritten))

	counter("searches_fine_total", "Fine-granularity searches.", atomic.LoadUint64(&m.searchesFine))
	counter("searches_coarse_total", "Coarse-granularity searches.", atomic.LoadUint64(&m.searchesCoarse))
	counter("searches_combined_total", "Combined searches.", atomic.LoadUint64(&m.searchesCombined))
	counter("search_errors_total", "Number of failed searches.", atomic.LoadUint64(&m.searchErrors))

	counter("citation_hits_total", "Citation suggestions above the threshold.", atomic.LoadUint64(&m.citationHits))
	counter("citation_misses_total", "Citation suggestions below the threshold.", atomic.LoadUint64(&m.citationMisses))

	counter("embedding_calls_total", "Embedding provider calls.", atomic.LoadUint64(&m.embedCallsTotal))
	counter("embedding_errors_total", "Failed embedding calls.", atomic.LoadUint64(&m.embedErrors))
	gauge("embedding_duration_seconds_total", "Total embedding call duration.", embedDuration)

	counter("answers_total", "Answer synthesis requests.", atomic.LoadUint64(&m.answersTotal))
	counter("answer_errors_total", "Failed answer syntheses.", atomic.LoadUint64(&m.answerErrors))

	counter("chunks_cleaned_total", "Chunks removed by short-chunk cleanup.", atomic.LoadUint64(&m.chunksCleaned))

	gauge("uptime_seconds", "Service uptime in seconds.", time.Since(m.startTime).Seconds())

	return sb.String()
}

// Stats returns the current counters as a nested map for the stats API.
func (m *Metrics) Stats() map[string]any {
	m.durationMu.Lock()
	embedDuration := m.embedDurationSecs
	m.durationMu.Unlock()

	embedTotal := atomic.LoadUint64(&m.embedCallsTotal)
	avgEmbed := 0.0
	if embedTotal > 0 {
		avgEmbed = embedDuration / float64(embedTotal)
	}

	return map[string]any{
		"ingestion": map[string]any{
			"total":         atomic.LoadUint64(&m.ingestsTotal),
			"errors":        atomic.LoadUint64(&m.ingestErrors),
			"fine_chunks":   atomic.LoadUint64(&m.fineChunksWritten),
			"coarse_chunks": atomic.LoadUint64(&m.coarseChunksWritten),
		},
		"searches": map[string]any{
			"fine":     atomic.LoadUint64(&m.searchesFine),
			"coarse":   atomic.LoadUint64(&m.searchesCoarse),
			"combined": atomic.LoadUint64(&m.searchesCombined),
			"errors":   atomic.LoadUint64(&m.searchErrors),
		},
		"citations": map[string]any{
			"hits":   atomic.LoadUint64(&m.citationHits),
			"misses": atomic.LoadUint64(&m.citationMisses),
		},
		"embedding": map[string]any{
			"calls":               embedTotal,
			"errors":              atomic.LoadUint64(&m.embedErrors),
			"total_duration_secs": embedDuration,
			"avg_duration_secs":   avgEmbed,
		},
		"answers": map[string]any{
			"total":  atomic.LoadUint64(&m.answersTotal),
			"errors": atomic.LoadUint64(&m.answerErrors),
		},
		"maintenance": map[string]any{
			"chunks_cleaned": atomic.LoadUint64(&m.chunksCleaned),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset zeroes all counters. Test use only.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.ingestsTotal, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)
	atomic.StoreUint64(&m.fineChunksWritten, 0)
	atomic.StoreUint64(&m.coarseChunksWritten, 0)
	atomic.StoreUint64(&m.searchesFine, 0)
	atomic.StoreUint64(&m.searchesCoarse, 0)
	atomic.StoreUint64(&m.searchesCombined, 0)
	atomic.StoreUint64(&m.searchErrors, 0)
	atomic.StoreUint64(&m.citationHits, 0)
	atomic.StoreUint64(&m.citationMisses, 0)
	atomic.StoreUint64(&m.embedCallsTotal, 0)
	atomic.StoreUint64(&m.embedErrors, 0)
	atomic.StoreUint64(&m.answersTotal, 0)
	atomic.StoreUint64(&m.answerErrors, 0)
	atomic.StoreUint64(&m.chunksCleaned, 0)

	m.durationMu.Lock()
	m.embedDurationSecs = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
