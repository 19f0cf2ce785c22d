package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pawonika-pos/api/internal/database"
)

// BackupStore defines the read-only dump methods needed by the backup
// export. Satisfied by *database.Queries.
type BackupStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	ListAllOrderItems(ctx context.Context) ([]database.OrderItem, error)
	ListSettingRows(ctx context.Context) ([]database.Setting, error)
}

// BackupHandler serves the full-database JSON export.
type BackupHandler struct {
	store BackupStore
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(store BackupStore) *BackupHandler {
	return &BackupHandler{store: store}
}

// RegisterRoutes registers backup endpoints on the given Chi router.
// Expected to be mounted at /api/backup.
func (h *BackupHandler) RegisterRoutes(r chi.Router) {
	r.Get("/export", h.Export)
}

type backupExportResponse struct {
	ExportID   uuid.UUID            `json:"export_id"`
	ExportedAt time.Time            `json:"exported_at"`
	Products   []database.Product   `json:"products"`
	Orders     []database.Order     `json:"orders"`
	OrderItems []database.OrderItem `json:"order_items"`
	Settings   []database.Setting   `json:"settings"`
}

// Export handles GET /api/backup/export: a read-only dump of all four
// tables plus an export timestamp.
func (h *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.store.ListProducts(ctx)
	if err != nil {
		log.Printf("ERROR: backup export products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	orders, err := h.store.ListOrders(ctx)
	if err != nil {
		log.Printf("ERROR: backup export orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	items, err := h.store.ListAllOrderItems(ctx)
	if err != nil {
		log.Printf("ERROR: backup export order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	settings, err := h.store.ListSettingRows(ctx)
	if err != nil {
		log.Printf("ERROR: backup export settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if products == nil {
		products = []database.Product{}
	}
	if orders == nil {
		orders = []database.Order{}
	}
	if items == nil {
		items = []database.OrderItem{}
	}
	if settings == nil {
		settings = []database.Setting{}
	}

	writeJSON(w, http.StatusOK, backupExportResponse{
		ExportID:   uuid.New(),
		ExportedAt: time.Now().UTC(),
		Products:   products,
		Orders:     orders,
		OrderItems: items,
		Settings:   settings,
	})
}
