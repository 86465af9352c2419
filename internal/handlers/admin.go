package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"akkervarken.be/farmshop/internal/orders"
	"akkervarken.be/farmshop/internal/platform/httpx"
)

// adminAuth guards the archive endpoints with HTTP Basic credentials.
func (h *Handler) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.deps.Admin.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.deps.Admin.Password)) == 1
		if !ok || !userOK || !passOK {
			w.Header().Set("WWW-Authenticate", `Basic realm="farmshop admin"`)
			httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "credentials required", http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Orders.List(r.Context())
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("internal", "listing orders failed", http.StatusInternalServerError))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.deps.Orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *Handler) adminAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	status, err := h.deps.Orders.AdvanceStatus(r.Context(), id)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		httpx.WriteError(r.Context(), w, httpx.NewError("order_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, orders.ErrFinalStatus):
		httpx.WriteError(r.Context(), w, httpx.NewError("final_status", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("internal", "order lookup failed", http.StatusInternalServerError))
	}
}
