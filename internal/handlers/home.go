package handlers

import (
	"encoding/json"
	"net/http"

	"akkervarken.be/farmshop/internal/analytics"
	"akkervarken.be/farmshop/internal/content"
	"akkervarken.be/farmshop/internal/platform/httpx"
)

// home serves the landing page content: slideshow slides plus contact block.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.deps.Site)
}

// slideshow resolves the next active slide index for a rotation step. The
// client keeps the current index; the server owns the wrap rules.
func (h *Handler) slideshow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current int    `json:"current"`
		Op      string `json:"op"`
		Index   int    `json:"index,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", "request body must be JSON", http.StatusBadRequest))
		return
	}

	rot := content.NewRotation(len(h.deps.Site.Slides))
	rot.Select(req.Current)
	var active int
	switch req.Op {
	case "next":
		active = rot.Next()
	case "prev":
		active = rot.Prev()
	case "select":
		active = rot.Select(req.Index)
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_op", "op must be next, prev, or select", http.StatusUnprocessableEntity))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"active": active})
}

// track records client-side interaction events that have no server-side
// transition of their own: contact taps and call-to-action clicks.
func (h *Handler) track(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Event       string `json:"event"`
		Method      string `json:"method,omitempty"`
		Label       string `json:"label,omitempty"`
		Destination string `json:"destination,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", "request body must be JSON", http.StatusBadRequest))
		return
	}

	switch req.Event {
	case analytics.EventContact:
		h.deps.Tracker.Track(r.Context(), analytics.Contact(req.Method, h.deps.Contact.Phone))
	case analytics.EventCTAClick:
		h.deps.Tracker.Track(r.Context(), analytics.CTAClick(req.Label, req.Destination))
	default:
		httpx.WriteError(r.Context(), w, httpx.NewError("unknown_event", "event must be contact or cta_click", http.StatusUnprocessableEntity))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
