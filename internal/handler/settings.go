package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SettingsStore defines the database methods needed by settings
// handlers. Satisfied by *database.Queries.
type SettingsStore interface {
	ListSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// SettingsHandler exposes the flat settings namespace. The invoice
// prefix lives here too, so operators can change it without a restart;
// edits to invoice_counter take effect on the next checkout.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterRoutes registers settings endpoints on the given Chi router.
// Expected to be mounted at /api/settings.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Set)
}

// Get handles GET /api/settings, returning the whole key/value map.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		log.Printf("ERROR: list settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Set handles POST /api/settings, upserting every submitted pair.
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	for k, v := range req {
		if err := h.store.SetSetting(r.Context(), k, v); err != nil {
			log.Printf("ERROR: set setting %q: %v", k, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
