package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/catalog"
	"akkervarken.be/farmshop/internal/orders"
	"akkervarken.be/farmshop/internal/platform/httpx"
	"akkervarken.be/farmshop/internal/shop"
)

type batchView struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Type        catalog.BatchType    `json:"type"`
	PickupText  string               `json:"pickupText,omitempty"`
	PickupSlots []catalog.PickupSlot `json:"pickupSlots,omitempty"`
	Products    []productView        `json:"products"`
}

type productView struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Price         float64 `json:"price"`
	ExpectedPrice float64 `json:"expectedPrice,omitempty"`
	WeightDisplay string  `json:"weightDisplay,omitempty"`
	Packaging     string  `json:"packaging,omitempty"`
	PerKg         bool    `json:"perKg"`
	Quantity      float64 `json:"quantity"`
	Disabled      bool    `json:"disabled"`
}

// shopCatalog serves the batch-grouped catalog with the session's current
// quantities and batch-lock folded in, and reports the listing view.
func (h *Handler) shopCatalog(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	locked := sess.Shop.LockedBatch()

	var listed []analytics.Item
	batches := make([]batchView, 0, len(h.deps.Catalog.Batches()))
	for _, b := range h.deps.Catalog.Batches() {
		bv := batchView{
			ID:          b.ID,
			Name:        b.Name,
			Type:        b.Type,
			PickupText:  b.PickupText,
			PickupSlots: b.PickupSlots,
			Products:    make([]productView, 0, len(b.Products)),
		}
		for _, p := range b.Products {
			desc, err := catalog.RenderDescription(p.Description)
			if err != nil {
				h.deps.Logger.Warn("render description failed", zap.String("product", p.ID), zap.Error(err))
			}
			bv.Products = append(bv.Products, productView{
				ID:            p.ID,
				Name:          p.Name,
				Description:   string(desc),
				Price:         p.UnitPrice,
				ExpectedPrice: p.ExpectedPrice,
				WeightDisplay: p.DisplayWeight,
				Packaging:     p.PackagingText(),
				PerKg:         p.PerKg(),
				Quantity:      sess.Shop.Quantity(p.ID),
				Disabled:      locked != "" && locked != p.BatchID,
			})
			listed = append(listed, analytics.Item{
				ItemID:       p.ID,
				ItemName:     p.Name,
				ItemCategory: p.BatchID,
				Price:        p.EffectivePrice(),
				Index:        len(listed),
			})
		}
		batches = append(batches, bv)
	}

	h.deps.Tracker.Track(r.Context(), analytics.ViewItemList(listed))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"batches":     batches,
		"lockedBatch": locked,
	})
}

// shopCart returns the order summary and reports the cart view.
func (h *Handler) shopCart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, sess.Shop.TrackCartView(r.Context()))
}

// shopIntent applies one cart or checkout command to the session.
func (h *Handler) shopIntent(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var cmd shop.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", "request body must be a JSON command", http.StatusBadRequest))
		return
	}

	res, err := sess.Shop.Apply(r.Context(), cmd)
	if err != nil {
		h.writeShopError(w, r, res, err)
		return
	}

	if cmd.Intent == shop.IntentSubmit && res.Dispatch != nil {
		h.archiveOrder(r, sess, cmd.Form, res)
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// archiveOrder records a dispatched order. Archival failure must not break
// the buyer flow; the order still leaves through the mail client.
func (h *Handler) archiveOrder(r *http.Request, sess *sessionState, form shop.Form, res shop.Result) {
	items := make([]orders.Item, 0, len(res.Summary.Lines))
	for _, line := range res.Summary.Lines {
		items = append(items, orders.Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		})
	}
	id, err := h.deps.Orders.Archive(r.Context(), orders.Order{
		CustomerName:  form.Name,
		CustomerPhone: form.Phone,
		Notes:         form.Notes,
		BatchID:       res.Summary.BatchID,
		BatchName:     res.Summary.BatchName,
		Total:         res.Summary.TotalPrice,
		Items:         items,
	})
	if err != nil {
		h.deps.Logger.Error("order archive failed", zap.Error(err))
		return
	}
	h.deps.Logger.Info("order archived",
		zap.String("order_id", id),
		zap.String("batch", res.Summary.BatchID),
		zap.Float64("total", res.Summary.TotalPrice),
	)
}

func (h *Handler) writeShopError(w http.ResponseWriter, r *http.Request, res shop.Result, err error) {
	var conflict *shop.BatchConflictError
	switch {
	case errors.As(err, &conflict):
		httpx.WriteError(r.Context(), w, httpx.NewError("batch_conflict", conflict.UserMessage(), http.StatusConflict).
			WithDetails(map[string]any{
				"selectedBatch":  conflict.SelectedBatch,
				"attemptedBatch": conflict.AttemptedBatch,
				"state":          res.State,
				"summary":        res.Summary,
			}))
	case errors.Is(err, shop.ErrEmptyCart):
		httpx.WriteError(r.Context(), w, httpx.NewError("empty_cart", "selecteer eerst producten", http.StatusUnprocessableEntity))
	case errors.Is(err, shop.ErrNameRequired):
		httpx.WriteError(r.Context(), w, httpx.NewError("name_required", "vul je naam in", http.StatusUnprocessableEntity))
	case errors.Is(err, shop.ErrTermsRequired):
		httpx.WriteError(r.Context(), w, httpx.NewError("terms_required", "aanvaard de voorwaarden", http.StatusUnprocessableEntity))
	case errors.Is(err, shop.ErrNotReviewing), errors.Is(err, shop.ErrNotDispatched):
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, catalog.ErrProductNotFound):
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_product", err.Error(), http.StatusNotFound))
	default:
		h.deps.Logger.Error("shop command failed", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("internal", "something went wrong", http.StatusInternalServerError))
	}
}
