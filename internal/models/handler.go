package models

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fieldline/curator/pkg/handlers"
	"github.com/fieldline/curator/pkg/routes"
)

// Handler provides HTTP endpoints for model registry operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "models"),
	}
}

// Routes returns the route group definition for model registry endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/models",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/active", Handler: h.Active},
			{Method: "POST", Pattern: "/activate", Handler: h.Activate},
			{Method: "POST", Pattern: "/auto-activate", Handler: h.AutoActivate},
			{Method: "DELETE", Pattern: "/active", Handler: h.Clear},
		},
	}
}

// Active returns the current active model pointer.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	pointer, err := h.sys.Active()
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pointer)
}

// Activate swaps the active model by decoding an ActivateCommand JSON body.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var cmd ActivateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	pointer, err := h.sys.ActivateModel(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pointer)
}

// AutoActivate activates the newest stored artifact.
func (h *Handler) AutoActivate(w http.ResponseWriter, r *http.Request) {
	pointer, err := h.sys.AutoActivateLatest(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pointer)
}

// Clear removes the active model pointer.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.ClearActive(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
