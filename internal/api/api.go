// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/fieldline/curator/internal/config"
	"github.com/fieldline/curator/internal/infrastructure"
	"github.com/fieldline/curator/pkg/middleware"
	"github.com/fieldline/curator/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Lifecycle-bound domain systems (model registry, training scheduler, and
// the learning orchestrator) are registered with the coordinator here.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	if err := domain.Start(runtime); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
