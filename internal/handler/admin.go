package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sealevelil48/sealevel-dashboard/internal/middleware"
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	Handler
}

func NewAdminHandler(s *server.Server) *AdminHandler {
	return &AdminHandler{Handler: NewHandler(s)}
}

// InvalidateCache clears cached query results. An optional "prefix" query
// param narrows the invalidation to one key family; without it the whole
// query cache namespace is cleared. The backing store is untouched; the next
// queries repopulate the cache.
func (h *AdminHandler) InvalidateCache(c echo.Context) error {
	prefix := c.QueryParam("prefix")

	deleted := h.server.DB.Cache().Invalidate(c.Request().Context(), prefix)

	middleware.GetLogger(c).Info().
		Str("prefix", prefix).
		Int("deleted", deleted).
		Msg("cache invalidation requested")

	return c.JSON(http.StatusOK, map[string]any{
		"deleted": deleted,
		"prefix":  prefix,
	})
}
