package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pawonika-pos/api/internal/database"
	"github.com/pawonika-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.OrderResult, error)
	Update(ctx context.Context, id int64, patch service.UpdatePatch) (*service.OrderResult, error)
	Delete(ctx context.Context, id int64) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (database.Order, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID int64) ([]database.OrderItem, error)
}

// OrderEventPublisher pushes order lifecycle events to connected
// clients. Satisfied by *ws.Hub.
type OrderEventPublisher interface {
	Broadcast(eventType string, payload interface{})
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	events OrderEventPublisher
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, events OrderEventPublisher) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, events: events}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /api/orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Items         []createOrderItemRequest `json:"items"`
	Discount      decimal.Decimal          `json:"discount"`
	Tax           decimal.Decimal          `json:"tax"`
	PaymentMethod string                   `json:"payment_method"`
	PaidAmount    decimal.Decimal          `json:"paid_amount"`
	CustomerName  string                   `json:"customer_name"`
	Note          string                   `json:"note"`
}

type createOrderItemRequest struct {
	ProductID *int64 `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Qty       int64  `json:"qty"`
}

type updateOrderRequest struct {
	CustomerName  *string          `json:"customer_name"`
	Discount      *decimal.Decimal `json:"discount"`
	Tax           *decimal.Decimal `json:"tax"`
	PaymentMethod *string          `json:"payment_method"`
	PaidAmount    *decimal.Decimal `json:"paid_amount"`
	Note          *string          `json:"note"`
}

// orderDetailResponse is the {order, items} envelope shared by the
// create, get, and update endpoints.
type orderDetailResponse struct {
	Order database.Order       `json:"order"`
	Items []database.OrderItem `json:"items"`
}

// --- Handlers ---

// Create handles POST /api/orders (checkout).
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CheckoutItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.CheckoutItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Qty:       item.Qty,
		}
	}

	result, err := h.svc.Checkout(r.Context(), service.CheckoutRequest{
		Items:         items,
		Discount:      req.Discount,
		Tax:           req.Tax,
		PaymentMethod: req.PaymentMethod,
		PaidAmount:    req.PaidAmount,
		CustomerName:  req.CustomerName,
		Note:          req.Note,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrInvoiceConflict) {
			// Duplicate invoice number means the counter serialization
			// is broken; make that impossible to miss in the logs.
			log.Printf("ERROR: invoice allocation conflict: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderDetailResponse{Order: result.Order, Items: result.Items}
	h.events.Broadcast("order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /api/orders. Items are not embedded.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if orders == nil {
		orders = []database.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if items == nil {
		items = []database.OrderItem{}
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{Order: order, Items: items})
}

// Update handles PUT /api/orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Update(r.Context(), id, service.UpdatePatch{
		CustomerName:  req.CustomerName,
		Discount:      req.Discount,
		Tax:           req.Tax,
		PaymentMethod: req.PaymentMethod,
		PaidAmount:    req.PaidAmount,
		Note:          req.Note,
	})
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		log.Printf("ERROR: update order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderDetailResponse{Order: result.Order, Items: result.Items}
	h.events.Broadcast("order.updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	h.events.Broadcast("order.deleted", map[string]int64{"id": id})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// --- Helpers ---

// orderID parses the {id} URL param, writing a 400 response on failure.
func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrItemName) ||
		errors.Is(err, service.ErrNegativePrice)
}
