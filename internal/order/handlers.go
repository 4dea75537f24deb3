package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
)

// Handler serves the order history of the signed-in user.
type Handler struct {
	Repo   Repository
	Logger zerolog.Logger
}

// List handles GET /api/v1/orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	p := common.ParsePagination(r, 20, 100)
	total, err := h.Repo.CountByOwner(r.Context(), userID)
	if err != nil {
		h.Logger.Error().Err(err).Str("owner", userID).Msg("count orders")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Repo.ListByOwner(r.Context(), userID, p.PerPage, p.Offset())
	if err != nil {
		h.Logger.Error().Err(err).Str("owner", userID).Msg("list orders")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	p.TotalItems = total
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       orders,
		"pagination": p,
	})
}

// Latest handles GET /api/v1/orders/latest, used by the confirmation view.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ord, err := h.Repo.Latest(r.Context(), userID)
	h.writeOrder(w, ord, err)
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	ord, err := h.Repo.GetForOwner(r.Context(), userID, chi.URLParam(r, "orderId"))
	h.writeOrder(w, ord, err)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repository not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return userID, true
}

func (h *Handler) writeOrder(w http.ResponseWriter, ord Order, err error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		h.Logger.Error().Err(err).Msg("load order")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ord})
}
