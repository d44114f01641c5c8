// Package api assembles the API module with all domain systems and route
// registration.
package api

import (
	"net/http"

	"github.com/genomecurate/curia/internal/config"
	"github.com/genomecurate/curia/internal/infrastructure"
	"github.com/genomecurate/curia/pkg/middleware"
	"github.com/genomecurate/curia/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The session middleware runs innermost so every domain handler sees an
// authenticated actor.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(runtime.Session.Middleware())

	return m, nil
}
