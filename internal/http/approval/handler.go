package approval

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/approval"
)

type Handler struct {
	svc *approval.Service
}

func NewHandler(svc *approval.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/approval", h.resolve)
}

type resolveResponse struct {
	InteractionID string `json:"interaction_id"`
	Resolution    string `json:"resolution"`
}

// resolve handles one approval delivery. Redelivery of an already resolved
// interaction answers 200 without touching anything, so the notification
// channel can retry as aggressively as it wants.
func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	var payload approval.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := approval.ParseEvent(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resolution, err := h.svc.Resolve(r.Context(), ev)
	if err != nil {
		if errors.Is(err, approval.ErrUnknownInteraction) {
			http.Error(w, "unknown interaction", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	resp := resolveResponse{
		InteractionID: ev.InteractionID.String(),
		Resolution:    string(resolution),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
