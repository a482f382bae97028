package router

import (
	"github.com/labstack/echo/v4"

	"github.com/sealevelil48/sealevel-dashboard/internal/handler"
)

// registerSystemRoutes registers the operational endpoints that are not part
// of the dashboard's business logic.
func registerSystemRoutes(e *echo.Echo, h *handler.Handlers) {
	e.GET("/health", h.Health.CheckHealth)
	e.GET("/metrics", h.Metrics.GetMetrics)

	e.POST("/admin/cache/invalidate", h.Admin.InvalidateCache)
}
