package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/money"
	"akkervarken.be/farmshop/internal/platform/httpx"
	"akkervarken.be/farmshop/internal/pos"
)

type saleLineView struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	PerKg     bool    `json:"perKg"`
	Subtotal  float64 `json:"subtotal"`
	Display   string  `json:"display"`
}

type saleView struct {
	Lines        []saleLineView `json:"lines"`
	Total        float64        `json:"total"`
	DisplayTotal string         `json:"displayTotal"`
}

func buildSaleView(sale *pos.Sale) saleView {
	lines := sale.Lines()
	view := saleView{Lines: make([]saleLineView, 0, len(lines))}
	for _, line := range lines {
		view.Lines = append(view.Lines, saleLineView{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.UnitPrice,
			PerKg:     line.Product.PerKg(),
			Subtotal:  line.Subtotal(),
			Display:   money.FormatEUR(line.Subtotal()),
		})
	}
	view.Total = sale.Total()
	view.DisplayTotal = money.FormatEUR(view.Total)
	return view
}

func (h *Handler) posSale(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, buildSaleView(sess.Sale))
}

func (h *Handler) posSetItem(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var req struct {
		ProductID string `json:"productId"`
		Quantity  string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", "request body must be JSON", http.StatusBadRequest))
		return
	}

	var err error
	if req.Quantity == "" {
		err = sess.Sale.Add(req.ProductID)
	} else {
		err = sess.Sale.SetQuantity(req.ProductID, req.Quantity)
	}
	if err != nil {
		h.writePOSError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildSaleView(sess.Sale))
}

func (h *Handler) posRemoveItem(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	sess.Sale.Remove(chi.URLParam(r, "productID"))
	httpx.WriteJSON(w, http.StatusOK, buildSaleView(sess.Sale))
}

func (h *Handler) posReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	sess.Sale.Reset()
	httpx.WriteJSON(w, http.StatusOK, buildSaleView(sess.Sale))
}

func (h *Handler) posReceipt(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	receipt, err := sess.Sale.Receipt()
	if err != nil {
		h.writePOSError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(receipt))
}

func (h *Handler) posQR(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	payload, err := sess.Sale.QRPayload(h.deps.Payment)
	if err != nil {
		h.writePOSError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"payload": payload,
		"total":   sess.Sale.Total(),
	})
}

func (h *Handler) writePOSError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pos.ErrEmptySale):
		httpx.WriteError(r.Context(), w, httpx.NewError("empty_sale", "voeg eerst producten toe", http.StatusUnprocessableEntity))
	case errors.Is(err, pos.ErrWholeQuantity):
		httpx.WriteError(r.Context(), w, httpx.NewError("whole_quantity", "dit product wordt per stuk verkocht", http.StatusUnprocessableEntity))
	case errors.Is(err, pos.ErrInvalidQuantity):
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_quantity", "voer een geldig aantal in", http.StatusUnprocessableEntity))
	case errors.Is(err, catalog.ErrProductNotFound):
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_product", err.Error(), http.StatusNotFound))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("internal", "something went wrong", http.StatusInternalServerError))
	}
}
