package middleware

import (
	"github.com/sealevelil48/sealevel-dashboard/internal/server"
)

// Middlewares groups all middleware components so router setup wires them
// from one place.
type Middlewares struct {
	Global          *GlobalMiddlewares
	ContextEnhancer *ContextEnhancer
}

// NewMiddlewares constructs the middleware components from the application
// container.
func NewMiddlewares(s *server.Server) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		ContextEnhancer: NewContextEnhancer(s),
	}
}
