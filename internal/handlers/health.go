package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meditatva/pharmacy-service/internal/database"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Catalog  string `json:"catalog"`
}

// HealthCheck handles the health check endpoint. The service is usable
// without a database when the catalog comes from another source, so only
// a failing configured database or an unusable catalog reports 503.
func HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	response := HealthResponse{Status: "ok"}
	code := http.StatusOK

	if database.Pool() != nil {
		if err := database.Status(ctx); err != nil {
			response.Database = "disconnected"
			code = http.StatusServiceUnavailable
		} else {
			response.Database = "connected"
		}
	} else {
		response.Database = "not configured"
	}

	switch {
	case catalogCache == nil:
		response.Catalog = "not initialized"
		code = http.StatusServiceUnavailable
	case catalogCache.IsHealthy(ctx):
		response.Catalog = "ready"
	default:
		response.Catalog = "unavailable"
		code = http.StatusServiceUnavailable
	}

	if code != http.StatusOK {
		response.Status = "degraded"
	}
	c.JSON(code, response)
}
