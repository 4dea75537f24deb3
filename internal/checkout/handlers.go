package checkout

import (
	"context"
	"errors"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/cart"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/lock"
)

// Handler exposes POST /api/v1/checkout.
type Handler struct {
	svc      *Service
	sessions *cart.Sessions
	locker   cart.Locker
	lockTTL  time.Duration
	validate *validator.Validate
	logger   zerolog.Logger
}

// HandlerConfig groups Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Sessions *cart.Sessions
	Locker   cart.Locker
	LockTTL  time.Duration
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// NewHandler constructs a Handler and registers the "upi" validation tag.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Service == nil || cfg.Sessions == nil {
		return nil, errors.New("checkout: service and sessions are required")
	}
	v := cfg.Validate
	if v == nil {
		v = validator.New()
	}
	if err := RegisterValidators(v); err != nil {
		return nil, err
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Handler{
		svc:      cfg.Service,
		sessions: cfg.Sessions,
		locker:   cfg.Locker,
		lockTTL:  ttl,
		validate: v,
		logger:   cfg.Logger,
	}, nil
}

type checkoutRequest struct {
	UpiID string `json:"upiId" validate:"required,upi"`
}

type warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Checkout places an order for the signed-in user's cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload checkoutRequest
	if err := common.DecodeAndValidate(r, h.validate, &payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && hasTag(verrs, "upi") {
			h.writeError(w, ErrInvalidPaymentReference)
			return
		}
		h.writeError(w, err)
		return
	}

	store := h.sessions.Store(cart.User(userID))
	var placement Placement
	err := h.withLock(r.Context(), userID, func(ctx context.Context) error {
		if err := store.Load(ctx); err != nil {
			return err
		}
		var placeErr error
		placement, placeErr = h.svc.PlaceOrder(ctx, store, payload.UpiID)
		return placeErr
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	body := map[string]any{"data": placement.Order}
	if placement.ClearWarning != nil {
		body["warnings"] = []warning{{
			Code:    "CART_CLEAR_FAILED",
			Message: "order placed but the cart could not be cleared; it will be cleared shortly",
		}}
	}
	common.JSON(w, http.StatusCreated, body)
}

func (h *Handler) withLock(ctx context.Context, owner string, fn func(context.Context) error) error {
	if h.locker == nil {
		return fn(ctx)
	}
	waitCtx, cancel := context.WithTimeout(ctx, h.lockTTL)
	defer cancel()
	return h.locker.WithLock(waitCtx, lock.CartKey(owner), h.lockTTL, fn)
}

func hasTag(verrs validator.ValidationErrors, tag string) bool {
	for _, fe := range verrs {
		if fe.Tag() == tag {
			return true
		}
	}
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPaymentReference):
		common.JSONError(w, http.StatusBadRequest, "INVALID_PAYMENT_REFERENCE", "enter a valid UPI ID, e.g. name@upi", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "your cart is empty", nil)
	case errors.Is(err, ErrGuestCheckout):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in to place an order", nil)
	case errors.Is(err, ErrOrderPlacement):
		common.JSONError(w, http.StatusBadGateway, "ORDER_FAILED", "failed to place order, please try again", nil)
	default:
		cart.WriteError(w, err)
	}
}
