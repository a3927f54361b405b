// Package handler implements the billing HTTP API and the HTML dashboard.
package handler

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xenking/pos-billing/internal/domain/analytics"
	"github.com/xenking/pos-billing/internal/domain/order"
	"github.com/xenking/pos-billing/internal/domain/product"
)

// OrderPlacer assembles and persists orders from carts.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
}

// Analytics provides the revenue series and dashboard metrics.
type Analytics interface {
	RevenueSeries(ctx context.Context) (*analytics.Series, error)
	Dashboard(ctx context.Context, q analytics.DashboardQuery) (*analytics.Dashboard, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// StaticDir is served under /static/. Uploaded images are stored in its
	// uploads subdirectory.
	StaticDir string
	// MaxUploadSize bounds multipart product form bodies.
	MaxUploadSize int64
}

// DefaultMaxUploadSize is used when Config.MaxUploadSize is not set.
const DefaultMaxUploadSize = 8 << 20

// Handler serves the REST API and the dashboard page.
type Handler struct {
	products  product.Repository
	orders    order.Repository
	placer    OrderPlacer
	analytics Analytics

	staticDir     string
	maxUploadSize int64
	dashboard     *template.Template
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	orders order.Repository,
	placer OrderPlacer,
	stats Analytics,
) *Handler {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	return &Handler{
		products:      products,
		orders:        orders,
		placer:        placer,
		analytics:     stats,
		staticDir:     cfg.StaticDir,
		maxUploadSize: cfg.MaxUploadSize,
		dashboard:     dashboardTemplate,
	}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	api.HandleFunc("/products/{id:[0-9]+}", h.UpdateProduct).Methods(http.MethodPut)
	api.HandleFunc("/products/{id:[0-9]+}", h.DeleteProduct).Methods(http.MethodDelete)

	api.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", h.DeleteOrder).Methods(http.MethodDelete)

	api.HandleFunc("/analytics", h.RevenueSeries).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.DashboardJSON).Methods(http.MethodGet)

	r.HandleFunc("/", h.Dashboard).Methods(http.MethodGet)
	if h.staticDir != "" {
		r.PathPrefix("/static/").
			Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(h.staticDir)))).
			Methods(http.MethodGet, http.MethodHead)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
