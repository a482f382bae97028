package handler

import (
	"github.com/sealevelil48/sealevel-dashboard/internal/repository"
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// Handlers groups all HTTP handlers so router setup passes one object
// around.
type Handlers struct {
	Health   *HealthHandler
	Metrics  *MetricsHandler
	SeaLevel *SeaLevelHandler
	Admin    *AdminHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(s),
		Metrics:  NewMetricsHandler(s),
		SeaLevel: NewSeaLevelHandler(s, repos),
		Admin:    NewAdminHandler(s),
	}
}
