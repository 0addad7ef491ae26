package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meditatva/pharmacy-service/internal/catalog"
)

// CatalogRefresh reloads the catalog from its source
// POST /internal/catalog/refresh
func CatalogRefresh(c *gin.Context) {
	if catalogCache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog not initialized"})
		return
	}

	if c.Query("resetBreaker") == "true" {
		catalogCache.ResetCircuitBreaker()
	}

	if err := catalogCache.Load(c.Request.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrCircuitOpen) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": "Failed to refresh catalog: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Catalog refreshed successfully",
		"freshness": catalogCache.Freshness(),
	})
}

// CatalogHealth reports catalog freshness
// GET /internal/catalog/health
func CatalogHealth(c *gin.Context) {
	if catalogCache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "Catalog not initialized",
		})
		return
	}

	status := "ok"
	if !catalogCache.IsHealthy(c.Request.Context()) {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"freshness": catalogCache.Freshness(),
	})
}
