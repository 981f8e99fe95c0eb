package api

import (
	"context"
	"net/http"
	"time"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/asset"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/api/handlers/project"
	"github.com/gin-gonic/gin"
)

// Check reports whether one backing service is reachable.
type Check func(ctx context.Context) error

type Handlers struct {
	Assets   *asset.Handler
	Projects *project.Handler
	// Auth guards everything but the health endpoint.
	Auth   gin.HandlerFunc
	Checks map[string]Check
	// Stats, when set, adds per-shard statistics to the health report.
	Stats func(ctx context.Context) map[string]interface{}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, PATCH, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, X-User-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// Enable CORS for preflight requests
	r.Use(corsMiddleware())

	api := r.Group("/api")
	api.GET("/health", healthCheck(h.Checks, h.Stats))

	protected := api.Group("")
	if h.Auth != nil {
		protected.Use(h.Auth)
	}
	{
		// Project endpoints
		protected.POST("/projects", h.Projects.Create)
		protected.GET("/projects", h.Projects.List)
		protected.GET("/projects/:id", h.Projects.Get)
		protected.PATCH("/projects/:id", h.Projects.Update)
		protected.DELETE("/projects/:id", h.Projects.Delete)

		// Asset endpoints
		protected.POST("/projects/:id/assets/:kind", h.Assets.Upload)
		protected.GET("/projects/:id/assets/:kind", h.Assets.List)
		protected.DELETE("/assets/:kind/:id", h.Assets.Delete)

		protected.GET("/stats", h.Projects.Stats)
	}
}

func healthCheck(checks map[string]Check, stats func(context.Context) map[string]interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "degraded"
		}
		body := gin.H{"status": overall, "checks": results, "time": time.Now().UTC()}
		if stats != nil && status == http.StatusOK {
			body["shards"] = stats(ctx)
		}
		c.JSON(status, body)
	}
}
