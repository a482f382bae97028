// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups, mapping
// paths to their corresponding handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/sealevelil48/sealevel-dashboard/internal/handler"
	"github.com/sealevelil48/sealevel-dashboard/internal/middleware"
	"github.com/sealevelil48/sealevel-dashboard/internal/repository"
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// New builds the Echo router with the full middleware stack and all routes
// registered.
func New(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	repos := repository.NewRepositories(s)
	handlers := handler.NewHandlers(s, repos)
	middlewares := middleware.NewMiddlewares(s)

	e.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	// Order matters: the request ID must exist before the context enhancer
	// builds the request-scoped logger, which the request logger then uses.
	e.Use(middlewares.Global.Recover())
	e.Use(middlewares.Global.Secure())
	e.Use(middlewares.Global.CORS())
	e.Use(middleware.RequestID())
	e.Use(middlewares.ContextEnhancer.EnhanceContext())
	e.Use(middlewares.Global.RequestLogger())

	registerSystemRoutes(e, handlers)
	registerDataRoutes(e, handlers)

	return e
}

// registerDataRoutes maps the dashboard's data endpoints.
func registerDataRoutes(e *echo.Echo, h *handler.Handlers) {
	e.GET("/stations", h.SeaLevel.GetStations)
	e.GET("/data", h.SeaLevel.GetData)
	e.GET("/live/:station", h.SeaLevel.GetLive)
	e.POST("/measurements", h.SeaLevel.PostMeasurements)
}
