package order

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
)

// FulfillmentKeyHeader carries the shared secret of the fulfillment process.
const FulfillmentKeyHeader = "X-Fulfillment-Key"

// RequireFulfillmentKey rejects requests without the configured key. An empty
// key disables the endpoints entirely.
func RequireFulfillmentKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "not found", nil)
				return
			}
			got := r.Header.Get(FulfillmentKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid fulfillment key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FulfillmentHandler lets the external fulfillment process advance orders.
type FulfillmentHandler struct {
	Repo     Repository
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type patchStatusRequest struct {
	Status            string     `json:"status" validate:"required"`
	TrackingNotes     *string    `json:"trackingNotes" validate:"omitempty,max=500"`
	DeliveryAddress   *string    `json:"deliveryAddress" validate:"omitempty,max=500"`
	EstimatedDelivery *time.Time `json:"estimatedDeliveryTime"`
}

// PatchStatus handles PATCH /api/v1/fulfillment/orders/{orderId}/status.
// Only the next status of pending → confirmed → shipped → delivered is accepted.
func (h *FulfillmentHandler) PatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order repository not configured", nil)
		return
	}
	var req patchStatusRequest
	if err := common.DecodeAndValidate(r, h.Validate, &req); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.WriteAppError(w, appErr)
			return
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	target, ok := ParseStatus(req.Status)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported status", map[string]any{"status": req.Status})
		return
	}
	orderID := chi.URLParam(r, "orderId")
	current, err := h.Repo.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	if !current.Status.CanAdvanceTo(target) {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", ErrInvalidTransition.Error(), map[string]any{
			"from": current.Status,
			"to":   target,
		})
		return
	}
	updated, err := h.Repo.AdvanceStatus(r.Context(), orderID, current.Status, target, FulfillmentUpdate{
		TrackingNotes:     req.TrackingNotes,
		DeliveryAddress:   req.DeliveryAddress,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			common.JSONError(w, http.StatusConflict, "INVALID_STATE", "order status changed, reload and retry", nil)
			return
		}
		h.Logger.Error().Err(err).Str("order_id", orderID).Msg("advance order status")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update order status", nil)
		return
	}
	h.Logger.Info().Str("order_id", orderID).Str("from", string(current.Status)).Str("to", string(target)).Msg("order status advanced")
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}
