// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/internal/api/handlers"
	"github.com/andresuchdata/replenish/internal/api/middleware"
	"github.com/andresuchdata/replenish/internal/modelstore"
)

type Services struct {
	Advisory handlers.Advisory
	// Models is mounted under /admin/models when set.
	Models *modelstore.Registry
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler(services))

	if services == nil {
		return router
	}

	if services.Advisory != nil {
		advisoryHandler := handlers.NewAdvisoryHandler(services.Advisory)
		apiGroup := router.Group("/api/v1")
		{
			apiGroup.POST("/predictions/demand", advisoryHandler.PredictDemand)
			apiGroup.POST("/predictions/advice", advisoryHandler.InventoryAdvice)
			apiGroup.POST("/advice/batch", advisoryHandler.RunBatch)
		}
	}

	if services.Models != nil {
		admin := gin.WrapH(modelstore.NewHandler(services.Models).Router())
		router.GET("/admin/models", admin)
		router.POST("/admin/models/reload", admin)
	}

	return router
}

func healthHandler(services *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if services != nil && services.Models != nil {
			store, err := services.Models.Current()
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
			info := store.Info()
			body["models"] = info.ProductCount
			body["regressor"] = info.RegressorKind
		}
		c.JSON(http.StatusOK, body)
	}
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
