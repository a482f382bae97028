// Package repository handles all interactions with the database.
//
// It contains the raw SQL for the dashboard's queries and methods to fetch
// or persist data, keeping SQL text out of the handlers. All access goes
// through the database.Manager so every query gets pooling, caching,
// chunking, and metrics for free.
package repository

import (
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// Repositories is the container for all repository instances.
type Repositories struct {
	SeaLevels *SeaLevelRepository
}

// NewRepositories constructs the repository container from the application
// container.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		SeaLevels: NewSeaLevelRepository(s),
	}
}
