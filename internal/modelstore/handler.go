package modelstore

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Handler exposes the registry over HTTP.
type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/models", h.ListModels).Methods(http.MethodGet)
	router.HandleFunc("/admin/models/reload", h.ReloadModels).Methods(http.MethodPost)
}

// Router returns a standalone mux router with the admin routes.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	store, err := h.registry.Current()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNotLoaded) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, store.Info())
}

func (h *Handler) ReloadModels(w http.ResponseWriter, r *http.Request) {
	store, err := h.registry.Reload(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("model reload failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "model reload failed"})
		return
	}

	info := store.Info()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "reloaded",
		"product_count": info.ProductCount,
		"loaded_at":     info.LoadedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}
