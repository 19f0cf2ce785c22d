package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pawonika-pos/api/internal/database"
	"github.com/pawonika-pos/api/internal/handler"
	"github.com/pawonika-pos/api/internal/service"
	"github.com/pawonika-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(queries *database.Queries, pool service.TxBeginner, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration: the cashier UI is served separately during
	// development, so allow everything. Single outlet, no credentials.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Live order feed
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	r.Route("/api", func(r chi.Router) {
		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore)
		orderHandler := handler.NewOrderHandler(orderService, queries, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Products
		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", productHandler.RegisterRoutes)

		// Settings
		settingsHandler := handler.NewSettingsHandler(queries)
		r.Route("/settings", settingsHandler.RegisterRoutes)

		// Backup
		backupHandler := handler.NewBackupHandler(queries)
		r.Route("/backup", backupHandler.RegisterRoutes)
	})

	return r
}
