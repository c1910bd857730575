// Package handler provides the HTTP handlers of the scholar service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/scholar-x/internal/model"
	"github.com/kart-io/scholar-x/internal/pkg/textutil"
	"github.com/kart-io/scholar-x/internal/scholar/biz"
	"github.com/kart-io/scholar-x/internal/scholar/metrics"
)

// ScholarHandler handles the scholar HTTP API.
type ScholarHandler struct {
	service *biz.Service
	metrics *metrics.Metrics
}

// NewScholarHandler creates a new ScholarHandler.
func NewScholarHandler(service *biz.Service) *ScholarHandler {
	return &ScholarHandler{
		service: service,
		metrics: metrics.Get(),
	}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusFor maps pipeline failure kinds to HTTP status codes: caller
// mistakes are 400, upstream extraction outages are 502, everything else
// is 500.
func statusFor(err error) int {
	switch biz.KindOf(err) {
	case biz.KindValidation:
		return http.StatusBadRequest
	case biz.KindExtraction:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, ErrorResponse{Code: status, Message: err.Error()})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: data})
}

// IngestRequest ingests a paper either by source (arXiv id/URL or web
// URL) or by raw text with caller-supplied metadata.
type IngestRequest struct {
	Source string `json:"source"`

	Text    string   `json:"text"`
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    int      `json:"year"`
	ArxivID string   `json:"arxiv_id"`
}

// Ingest handles POST /v1/papers/ingest.
func (h *ScholarHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	var (
		result *model.IngestResult
		err    error
	)
	switch {
	case req.Text != "":
		doc := documentFromRequest(&req)
		result, err = h.service.IngestText(c.Request.Context(), doc, req.Text)
	case req.Source != "":
		result, err = h.service.IngestSource(c.Request.Context(), req.Source)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "either source or text is required"})
		return
	}

	if err != nil {
		h.metrics.RecordIngest(0, 0, err)
		fail(c, err)
		return
	}
	h.metrics.RecordIngest(result.FineChunks, result.CoarseChunks, nil)
	ok(c, result)
}

// documentFromRequest builds provenance for the raw-text ingest path.
// The document id prefers the arXiv id and falls back to a title hash so
// re-ingesting the same paper replaces it.
func documentFromRequest(req *IngestRequest) *model.Document {
	docID := req.ArxivID
	if docID == "" {
		docID = textutil.HashString(req.Title)
	}
	title := req.Title
	if title == "" {
		title = "Unknown Title"
	}
	return &model.Document{
		ID:      docID,
		Title:   title,
		Authors: req.Authors,
		Year:    req.Year,
		ArxivID: req.ArxivID,
	}
}

// CitationRequest asks for the best-matching paper for a passage.
type CitationRequest struct {
	Text string `json:"text" binding:"required"`
}

// SearchCitation handles POST /v1/search/citation.
func (h *ScholarHandler) SearchCitation(c *gin.Context) {
	var req CitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	suggestion, err := h.service.Retriever.SearchCitation(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.RecordCitation(suggestion.Match)
	ok(c, suggestion)
}

// SearchRequest is a context search at one granularity.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

// SearchFine handles POST /v1/search/fine.
func (h *ScholarHandler) SearchFine(c *gin.Context) {
	h.search(c, model.SearchFine)
}

// SearchCoarse handles POST /v1/search/coarse.
func (h *ScholarHandler) SearchCoarse(c *gin.Context) {
	h.search(c, model.SearchCoarse)
}

// SearchCombined handles POST /v1/search/combined.
func (h *ScholarHandler) SearchCombined(c *gin.Context) {
	h.search(c, model.SearchCombined)
}

func (h *ScholarHandler) search(c *gin.Context, mode model.SearchMode) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	hits, err := h.service.Retriever.Search(c.Request.Context(), req.Query, mode, req.TopK)
	h.metrics.RecordSearch(string(mode), err)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"mode": mode, "hits": hits})
}

// AnswerRequest asks a question over the ingested corpus.
type AnswerRequest struct {
	Question string `json:"question" binding:"required"`
}

// Answer handles POST /v1/answer.
func (h *ScholarHandler) Answer(c *gin.Context) {
	if h.service.Answerer == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: 503, Message: "answer synthesis is not configured"})
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	answer, err := h.service.Answerer.Answer(c.Request.Context(), req.Question)
	h.metrics.RecordAnswer(err)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, answer)
}

// CountChunks handles GET /v1/chunks/count.
func (h *ScholarHandler) CountChunks(c *gin.Context) {
	counts, err := h.service.Maintenance.Count(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, counts)
}

// ListChunks handles GET /v1/chunks/list.
func (h *ScholarHandler) ListChunks(c *gin.Context) {
	var query struct {
		Granularity string `form:"granularity,default=fine"`
		Limit       int    `form:"limit,default=100"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	infos, err := h.service.Maintenance.List(c.Request.Context(), query.Granularity, query.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"granularity": query.Granularity, "chunks": infos})
}

// DeleteChunksRequest deletes one document's chunks, or everything when
// All is set.
type DeleteChunksRequest struct {
	DocumentID string `json:"document_id"`
	All        bool   `json:"all"`
}

// DeleteChunks handles POST /v1/chunks/delete.
func (h *ScholarHandler) DeleteChunks(c *gin.Context) {
	var req DeleteChunksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	var err error
	switch {
	case req.All:
		err = h.service.Maintenance.DeleteAll(c.Request.Context())
	case req.DocumentID != "":
		err = h.service.Maintenance.DeleteDocument(c.Request.Context(), req.DocumentID)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: "either document_id or all is required"})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// CleanChunksRequest removes chunks below a character cutoff.
type CleanChunksRequest struct {
	MinChars int `json:"min_chars"`
}

// CleanChunks handles POST /v1/chunks/clean.
func (h *ScholarHandler) CleanChunks(c *gin.Context) {
	var req CleanChunksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}
	if req.MinChars <= 0 {
		req.MinChars = h.service.MinChunkChars()
	}

	removed, err := h.service.Maintenance.CleanShortChunks(c.Request.Context(), req.MinChars)
	if err != nil {
		fail(c, err)
		return
	}
	h.metrics.RecordCleanup(removed)
	ok(c, gin.H{"removed": removed, "min_chars": req.MinChars})
}

// Stats handles GET /v1/stats: collection counts, service counters and,
// when the embedder is cache-wrapped, the embedding cache state.
func (h *ScholarHandler) Stats(c *gin.Context) {
	counts, err := h.service.Maintenance.Count(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	payload := gin.H{
		"collections": counts,
		"metrics":     h.metrics.Stats(),
	}
	cacheStats, err := h.service.EmbeddingCacheStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if cacheStats != nil {
		payload["embedding_cache"] = cacheStats
	}
	ok(c, payload)
}

// ClearCache handles POST /v1/cache/clear. cleared is false when no
// embedding cache is configured.
func (h *ScholarHandler) ClearCache(c *gin.Context) {
	cleared, err := h.service.ClearEmbeddingCache(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"cleared": cleared})
}

// Metrics handles GET /metrics in Prometheus text format.
func (h *ScholarHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8",
		[]byte(h.metrics.Export("scholar", "")))
}

// Healthz handles GET /healthz.
func (h *ScholarHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
