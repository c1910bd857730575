// Package router wires the scholar service routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/scholar-x/internal/scholar/handler"
	"github.com/kart-io/scholar-x/pkg/middleware"
)

// New builds the gin engine with the full route surface.
func New(h *handler.ScholarHandler) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.AccessLogger(),
		middleware.Recovery(),
		middleware.CORS(),
	)

	Register(engine, h)
	return engine
}

// Register registers the scholar routes on an existing engine.
func Register(engine *gin.Engine, h *handler.ScholarHandler) {
	logger.Info("Registering scholar routes...")

	engine.GET("/healthz", h.Healthz)
	engine.GET("/metrics", h.Metrics)

	v1 := engine.Group("/v1")
	{
		papers := v1.Group("/papers")
		{
			papers.POST("/ingest", h.Ingest)
		}

		search := v1.Group("/search")
		{
			search.POST("/citation", h.SearchCitation)
			search.POST("/fine", h.SearchFine)
			search.POST("/coarse", h.SearchCoarse)
			search.POST("/combined", h.SearchCombined)
		}

		v1.POST("/answer", h.Answer)

		chunks := v1.Group("/chunks")
		{
			chunks.GET("/count", h.CountChunks)
			chunks.GET("/list", h.ListChunks)
			chunks.POST("/delete", h.DeleteChunks)
			chunks.POST("/clean", h.CleanChunks)
		}

		v1.POST("/cache/clear", h.ClearCache)
		v1.GET("/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
}
