// Package handlers wires the HTTP surface: webshop, checkout, POS, consent,
// home content, and the admin order archive.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/consent"
	"akkervarken.be/farmshop/internal/content"
	"akkervarken.be/farmshop/internal/orders"
	"akkervarken.be/farmshop/internal/platform/observability"
	"akkervarken.be/farmshop/internal/pos"
	"akkervarken.be/farmshop/internal/shop"
)

// AdminCredentials guard the order archive endpoints. Empty credentials
// disable the admin routes entirely.
type AdminCredentials struct {
	Username string
	Password string
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Logger  *zap.Logger
	Catalog *catalog.Catalog
	Site    *content.Site
	Tracker *analytics.Tracker
	Orders  *orders.Repository
	Payment pos.Payment
	Contact shop.Contact
	Admin   AdminCredentials
	Clock   func() time.Time
}

// Handler is the HTTP surface of the shop.
type Handler struct {
	deps     Deps
	sessions *SessionStore
}

// New builds the handler and its session store.
func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	h := &Handler{deps: deps}
	h.sessions = NewSessionStore(func() *sessionState {
		return &sessionState{
			Shop: shop.NewSession(deps.Catalog, deps.Tracker, deps.Contact),
			Sale: pos.NewSale(deps.Catalog, deps.Clock),
		}
	})
	return h
}

// Routes assembles the router with the standard middleware stack.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(h.deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(consent.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/home", h.home)
		r.Post("/home/slideshow", h.slideshow)
		r.Post("/track", h.track)

		r.Get("/consent", h.consentStatus)
		r.Post("/consent", h.consentDecide)
		r.Delete("/consent", h.consentReset)

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.Middleware)

			r.Get("/shop/catalog", h.shopCatalog)
			r.Get("/shop/cart", h.shopCart)
			r.Post("/shop/cart", h.shopIntent)

			r.Get("/pos/sale", h.posSale)
			r.Post("/pos/items", h.posSetItem)
			r.Delete("/pos/items/{productID}", h.posRemoveItem)
			r.Post("/pos/reset", h.posReset)
			r.Get("/pos/receipt", h.posReceipt)
			r.Get("/pos/qr", h.posQR)
		})

		if h.deps.Admin.Username != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(h.adminAuth)
				r.Get("/orders", h.adminListOrders)
				r.Get("/orders/{orderID}", h.adminGetOrder)
				r.Post("/orders/{orderID}/advance", h.adminAdvanceOrder)
			})
		}
	})

	return r
}
