package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/service"
)

// MyClaims возвращает брони текущего пользователя.
func (h *Handler) MyClaims(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	claims, err := h.service.ClaimsByUser(r.Context(), a.ID)
	if err != nil {
		h.writeServiceError(w, r, "user claims", err)
		return
	}

	writeJSON(w, http.StatusOK, claims)
}

// ListingClaims возвращает брони объявления его донору.
func (h *Handler) ListingClaims(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	claims, err := h.service.ListingClaims(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "listing claims", err)
		return
	}

	writeJSON(w, http.StatusOK, claims)
}

type claimTransition func(ctx context.Context, actor service.Actor, claimID string) (*model.Claim, error)

func (h *Handler) transitionClaim(op string, fn claimTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}

		c, err := fn(r.Context(), a, chi.URLParam(r, "id"))
		if err != nil {
			h.writeServiceError(w, r, op, err)
			return
		}

		writeJSON(w, http.StatusOK, c)
	}
}

// ReceiveClaim подтверждает получение продуктов.
func (h *Handler) ReceiveClaim(w http.ResponseWriter, r *http.Request) {
	h.transitionClaim("receive claim", h.service.MarkReceived)(w, r)
}

// CollectClaim то же, что ReceiveClaim.
func (h *Handler) CollectClaim(w http.ResponseWriter, r *http.Request) {
	h.transitionClaim("collect claim", h.service.MarkCollected)(w, r)
}

// CancelClaim отменяет бронь.
func (h *Handler) CancelClaim(w http.ResponseWriter, r *http.Request) {
	h.transitionClaim("cancel claim", h.service.CancelClaim)(w, r)
}
