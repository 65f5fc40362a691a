package quote

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/pos-pricing/internal/common"
)

// Handler exposes the pricing endpoints.
type Handler struct {
	Svc *Service
}

// Routes mounts the pricing endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/pricing/quote", h.Quote)
	r.Post("/pricing/discounts/validate", h.ValidateDiscount)
}

// Quote prices a cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		badPayload(w, err)
		return
	}
	res, err := h.Svc.Quote(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

// ValidateDiscount reports the violations a discount would raise.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req CheckRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		badPayload(w, err)
		return
	}
	res, err := h.Svc.CheckDiscount(req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

func badPayload(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrBodyTooLarge):
		common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", err.Error(), nil)
	case errors.Is(err, common.ErrEmptyBody):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
}
