package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/cart"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/obs"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/order"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no line items.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrInvalidPaymentReference is returned for a malformed UPI id.
	ErrInvalidPaymentReference = errors.New("checkout: invalid payment reference")
	// ErrOrderPlacement is returned when the order could not be written. The
	// cart is untouched.
	ErrOrderPlacement = errors.New("checkout: order placement failed")
	// ErrCartClear marks an order that was written but whose cart could not be
	// cleared. It is reported as a warning, never as a failure.
	ErrCartClear = errors.New("checkout: cart clear failed")
	// ErrGuestCheckout is returned for carts that are not signed in.
	ErrGuestCheckout = errors.New("checkout: sign in required")
)

// OrderWriter persists new orders.
type OrderWriter interface {
	Insert(ctx context.Context, o order.Order) (order.Order, error)
}

// ClearRetrier schedules a later release of exactly the given cart quantities.
type ClearRetrier interface {
	EnqueueCartClear(ctx context.Context, ownerID string, lines []cart.Claim) error
}

// Placement is the outcome of a successful checkout. ClearWarning is set when
// the order stands but the cart was left behind.
type Placement struct {
	Order        order.Order
	ClearWarning error
}

// Service assembles orders from cart snapshots.
type Service struct {
	Orders          OrderWriter
	Retrier         ClearRetrier
	Logger          zerolog.Logger
	Now             func() time.Time
	Intn            func(n int) int
	DeliveryMinDays int
	DeliveryMaxDays int
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) intn(n int) int {
	if s.Intn != nil {
		return s.Intn(n)
	}
	return rand.IntN(n)
}

// EstimateDelivery returns now plus a whole number of days drawn uniformly
// from the configured window (3 to 5 days by default).
func (s *Service) EstimateDelivery(now time.Time) time.Time {
	minDays, maxDays := s.DeliveryMinDays, s.DeliveryMaxDays
	if minDays <= 0 && maxDays <= 0 {
		minDays, maxDays = 3, 5
	}
	if maxDays < minDays {
		maxDays = minDays
	}
	days := minDays + s.intn(maxDays-minDays+1)
	return now.AddDate(0, 0, days)
}

// Snapshot freezes the commercial fields of every line item.
func Snapshot(items []cart.LineItem) []order.LineSnapshot {
	out := make([]order.LineSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, order.LineSnapshot{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Unit:        it.SelectedUnit,
			Price:       it.BasePrice,
			FinalPrice:  it.FinalPrice,
		})
	}
	return out
}

// PlaceOrder converts the store's current cart into a pending order and then
// clears the cart. Precondition failures touch no persistence. When the order
// write fails the cart is left as it was. When only the clear fails, the order
// is returned with a ClearWarning and a background retry is scheduled for the
// snapshotted quantities.
func (s *Service) PlaceOrder(ctx context.Context, store *cart.Store, paymentReference string) (Placement, error) {
	if s.Orders == nil {
		return Placement{}, errors.New("checkout: order writer not configured")
	}
	if store == nil || !store.Owner().Authenticated {
		return Placement{}, ErrGuestCheckout
	}
	ref := strings.TrimSpace(paymentReference)
	if !ValidUPI(ref) {
		obs.ObserveOrderPlaced("invalid_reference")
		return Placement{}, ErrInvalidPaymentReference
	}
	items := store.Items()
	if len(items) == 0 {
		obs.ObserveOrderPlaced("empty_cart")
		return Placement{}, ErrEmptyCart
	}

	owner := store.Owner().ID
	now := s.now()
	draft := order.Order{
		OwnerID:           owner,
		Items:             Snapshot(items),
		TotalPrice:        cart.TotalOf(items),
		PaymentReference:  ref,
		Status:            order.StatusPending,
		EstimatedDelivery: s.EstimateDelivery(now),
		TrackingNotes:     order.DefaultTrackingNotes,
		CreatedAt:         now,
	}
	placed, err := s.Orders.Insert(ctx, draft)
	if err != nil {
		obs.ObserveOrderPlaced("error")
		s.Logger.Error().Err(err).Str("owner", owner).Msg("order placement failed")
		return Placement{}, fmt.Errorf("%w: %w", ErrOrderPlacement, err)
	}
	obs.ObserveOrderPlaced("ok")
	s.Logger.Info().
		Str("owner", owner).
		Str("order_id", placed.ID).
		Str("total", placed.TotalPrice.String()).
		Int("lines", len(placed.Items)).
		Msg("order placed")

	result := Placement{Order: placed}
	if clearErr := store.Clear(ctx); clearErr != nil {
		result.ClearWarning = fmt.Errorf("%w: %w", ErrCartClear, clearErr)
		obs.ObserveCartClearWarning()
		s.scheduleClear(owner, placed.ID, items, clearErr)
	}
	return result, nil
}

func (s *Service) scheduleClear(owner, orderID string, items []cart.LineItem, cause error) {
	claims := cart.ClaimsOf(items)
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
	}
	event := s.Logger.Warn().Err(cause).Str("owner", owner).Str("order_id", orderID).Strs("line_ids", ids)
	if s.Retrier == nil {
		event.Msg("cart not cleared after order; no retrier configured")
		return
	}
	// detached from the request so a cancelled client still gets the retry
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Retrier.EnqueueCartClear(ctx, owner, claims); err != nil {
		event.AnErr("enqueue_error", err).Msg("cart not cleared after order; retry could not be scheduled")
		return
	}
	event.Msg("cart not cleared after order; retry scheduled")
}
