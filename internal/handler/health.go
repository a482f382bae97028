package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sealevelil48/sealevel-dashboard/internal/middleware"
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// HealthHandler exposes the endpoint load balancers and uptime monitors use
// to verify the service is alive and its dependencies reachable.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(s)}
}

// CheckHealth reports overall status plus per-dependency sub-checks.
//
// Returns 200 when the backing store is reachable, 503 otherwise. A degraded
// data layer (unpooled fallback connection) still answers queries, so it
// reports 200 with "degraded": true. Operators alert on the flag while load
// balancers keep routing.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c)
	ctx := c.Request().Context()

	checks := make(map[string]any)
	isHealthy := true

	dbStart := time.Now()
	if err := h.server.DB.PingDatabase(ctx); err != nil {
		checks["database"] = map[string]any{
			"status":        "unhealthy",
			"response_time": time.Since(dbStart).String(),
			"error":         err.Error(),
		}
		isHealthy = false
	} else {
		checks["database"] = map[string]any{
			"status":        "healthy",
			"response_time": time.Since(dbStart).String(),
		}
	}

	if h.server.DB.Cache().Enabled() {
		redisStart := time.Now()
		status := "healthy"
		if !h.server.DB.Cache().Ping(ctx) {
			// A dead cache degrades performance, not correctness, so it does
			// not flip the overall status.
			status = "unhealthy"
		}
		checks["redis"] = map[string]any{
			"status":        status,
			"response_time": time.Since(redisStart).String(),
		}
	}

	response := map[string]any{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"degraded":    h.server.DB.Degraded(),
		"checks":      checks,
	}

	if !isHealthy {
		response["status"] = "unhealthy"
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().Dur("total_duration", time.Since(start)).Msg("health check passed")
	return c.JSON(http.StatusOK, response)
}
