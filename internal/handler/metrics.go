package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// MetricsHandler exposes the data layer's performance counters.
type MetricsHandler struct {
	Handler
}

func NewMetricsHandler(s *server.Server) *MetricsHandler {
	return &MetricsHandler{Handler: NewHandler(s)}
}

// GetMetrics returns the current query/cache/pool metrics snapshot.
func (h *MetricsHandler) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.server.DB.Metrics())
}
