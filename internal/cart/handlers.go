package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/lock"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/obs"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/pricing"
)

// ProductLookup resolves catalog products for add-to-cart.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// Locker serialises work on a key across API instances.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Handler wires the cart store to HTTP.
type Handler struct {
	Sessions *Sessions
	Products ProductLookup
	Locker   Locker
	LockTTL  time.Duration
	Validate *validator.Validate
	Currency string
	Logger   zerolog.Logger
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	UnitLabel string `json:"unitLabel"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type lineView struct {
	LineItem
	LineTotal string `json:"lineTotal"`
}

type cartView struct {
	Items        []lineView `json:"items"`
	ItemCount    int        `json:"itemCount"`
	Total        string     `json:"total"`
	DisplayTotal string     `json:"displayTotal"`
	Currency     string     `json:"currency"`
}

// View renders a store snapshot.
func View(items []LineItem, currency string) any {
	views := make([]lineView, 0, len(items))
	count := 0
	for _, it := range items {
		views = append(views, lineView{LineItem: it, LineTotal: it.LineTotal().String()})
		count += it.Quantity
	}
	total := TotalOf(items)
	return cartView{
		Items:        views,
		ItemCount:    count,
		Total:        total.String(),
		DisplayTotal: pricing.Display(total),
		Currency:     currency,
	}
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r, false)
	if !ok {
		return
	}
	if store == nil {
		common.JSON(w, http.StatusOK, map[string]any{"data": View(nil, h.Currency)})
		return
	}
	if err := store.Load(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": View(store.Items(), h.Currency)})
}

// AddItem handles POST /api/v1/cart/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r, true)
	if !ok {
		return
	}
	var payload addItemRequest
	if err := common.DecodeAndValidate(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	if h.Products == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	product, err := h.Products.GetProduct(r.Context(), strings.TrimSpace(payload.ProductID))
	if err != nil {
		h.writeError(w, err)
		return
	}
	unit, found := product.Option(payload.UnitLabel)
	if !found {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown unit option", map[string]any{"unitLabel": payload.UnitLabel})
		return
	}

	var item LineItem
	err = h.mutate(r.Context(), store, func(ctx context.Context) error {
		var addErr error
		item, addErr = store.Add(ctx, product, unit)
		return addErr
	})
	obs.ObserveCartMutation("add", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Logger.Debug().Str("owner", store.Owner().ID).Str("product_id", item.ProductID).Int("quantity", item.Quantity).Msg("cart item added")
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"item": lineView{LineItem: item, LineTotal: item.LineTotal().String()},
			"cart": View(store.Items(), h.Currency),
		},
	})
}

// UpdateItem handles PATCH /api/v1/cart/items/{itemId}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r, false)
	if !ok {
		return
	}
	var payload updateItemRequest
	if err := common.DecodeAndValidate(r, h.Validate, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	itemID := chi.URLParam(r, "itemId")
	if store == nil {
		if *payload.Quantity <= 0 {
			common.JSON(w, http.StatusOK, map[string]any{"data": View(nil, h.Currency)})
			return
		}
		h.writeError(w, fmt.Errorf("%w: %s", ErrNotFound, itemID))
		return
	}
	err := h.mutate(r.Context(), store, func(ctx context.Context) error {
		return store.UpdateQuantity(ctx, itemID, *payload.Quantity)
	})
	obs.ObserveCartMutation("update", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": View(store.Items(), h.Currency)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r, false)
	if !ok {
		return
	}
	if store == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	itemID := chi.URLParam(r, "itemId")
	err := h.mutate(r.Context(), store, func(ctx context.Context) error {
		return store.Remove(ctx, itemID)
	})
	obs.ObserveCartMutation("remove", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Merge handles POST /api/v1/cart/merge: the guest cart named by X-Session-ID
// is folded into the signed-in user's cart.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	if h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart not configured", nil)
		return
	}
	uid, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	guestID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "X-Session-ID header is required", nil)
		return
	}
	user := User(uid)
	var (
		store  *Store
		merged int
	)
	err := h.withLock(r.Context(), user, func(ctx context.Context) error {
		var mergeErr error
		store, merged, mergeErr = h.Sessions.Merge(ctx, guestID, user)
		return mergeErr
	})
	obs.ObserveCartMutation("merge", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Logger.Info().Str("owner", uid).Int("merged", merged).Msg("guest cart merged")
	w.Header().Set("X-Merged-Count", strconv.Itoa(merged))
	common.JSON(w, http.StatusOK, map[string]any{"data": View(store.Items(), h.Currency)})
}

// store resolves the caller's cart. Guest carts are only created when create
// is set; otherwise a guest without a cart gets a nil store and ok.
func (h *Handler) store(w http.ResponseWriter, r *http.Request, create bool) (*Store, bool) {
	if h.Sessions == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart not configured", nil)
		return nil, false
	}
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in or start a guest session", nil)
		return nil, false
	}
	if identity.Authenticated || create {
		return h.Sessions.Store(identity), true
	}
	st, _ := h.Sessions.Lookup(identity)
	return st, true
}

// mutate reloads an authenticated store under the owner's lock before fn runs.
func (h *Handler) mutate(ctx context.Context, store *Store, fn func(context.Context) error) error {
	return h.withLock(ctx, store.Owner(), func(ctx context.Context) error {
		if err := store.Load(ctx); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (h *Handler) withLock(ctx context.Context, identity Identity, fn func(context.Context) error) error {
	if !identity.Authenticated || h.Locker == nil {
		return fn(ctx)
	}
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()
	return h.Locker.WithLock(waitCtx, lock.CartKey(identity.ID), ttl, fn)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	WriteError(w, err)
}

// WriteError maps cart errors onto HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		common.WriteAppError(w, appErr)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found", nil)
	case errors.Is(err, ErrLoad):
		common.JSONError(w, http.StatusServiceUnavailable, "LOAD_FAILED", "unable to load cart", nil)
	case errors.Is(err, ErrRemove):
		common.JSONError(w, http.StatusBadGateway, "REMOVE_FAILED", "item removed locally but could not be deleted", nil)
	case errors.Is(err, ErrSave):
		common.JSONError(w, http.StatusBadGateway, "SAVE_FAILED", "unable to save cart", nil)
	case errors.Is(err, ErrClear):
		common.JSONError(w, http.StatusBadGateway, "CLEAR_FAILED", "unable to clear cart", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusServiceUnavailable, "CART_BUSY", "cart is being updated, retry shortly", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
