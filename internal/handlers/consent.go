package handlers

import (
	"encoding/json"
	"net/http"

	"akkervarken.be/farmshop/internal/consent"
	"akkervarken.be/farmshop/internal/platform/httpx"
)

func (h *Handler) consentStatus(w http.ResponseWriter, r *http.Request) {
	status := consent.FromRequest(r)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"showBanner": status == consent.Unset,
	})
}

func (h *Handler) consentDecide(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_body", "request body must be JSON", http.StatusBadRequest))
		return
	}

	status := consent.Status(req.Decision)
	if status != consent.Accepted && status != consent.Declined {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_decision", "decision must be accepted or declined", http.StatusUnprocessableEntity))
		return
	}
	consent.Write(w, status)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (h *Handler) consentReset(w http.ResponseWriter, r *http.Request) {
	consent.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": consent.Unset, "showBanner": true})
}
