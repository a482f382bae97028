// Package handler is the HTTP layer: it parses and validates request input,
// calls into the repository layer, and shapes responses. Data-layer errors
// are returned as-is and mapped to HTTP by the global error handler.
package handler

import (
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// Handler is the base type holding the shared application dependencies.
// Concrete handlers embed it.
type Handler struct {
	server *server.Server
}

// NewHandler constructs a base Handler. Returned by value: the struct only
// holds a pointer, so copies share the same Server.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}
