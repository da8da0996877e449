package api

import (
	"net/http"

	"github.com/fieldline/curator/internal/config"
	"github.com/fieldline/curator/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Schemas.Handler().Routes(),
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Annotations.Handler().Routes(),
		domain.Records.Handler().Routes(),
		domain.Feedback.Handler().Routes(),
		domain.Training.Handler().Routes(),
		domain.Models.Handler().Routes(),
		newStorageHandler(
			runtime.Storage,
			runtime.Logger,
			cfg.Storage.MaxListSize,
		).routes(),
	)
}
