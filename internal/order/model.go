package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// DefaultTrackingNotes is written on every new order.
const DefaultTrackingNotes = "Order received and being processed"

var (
	// ErrNotFound indicates the order does not exist for the owner.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition indicates a status change outside the linear chain.
	ErrInvalidTransition = errors.New("order: invalid status transition")
	// ErrStatusConflict indicates the order moved on before the update landed.
	ErrStatusConflict = errors.New("order: status changed concurrently")
)

var statusChain = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range statusChain {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

func (s Status) rank() int {
	for i, st := range statusChain {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the status that follows s. Delivered is terminal.
func (s Status) Next() (Status, bool) {
	i := s.rank()
	if i < 0 || i+1 >= len(statusChain) {
		return "", false
	}
	return statusChain[i+1], true
}

// CanAdvanceTo reports whether to is exactly the next status after s.
func (s Status) CanAdvanceTo(to Status) bool {
	next, ok := s.Next()
	return ok && next == to
}

// LineSnapshot is a frozen copy of a cart line's commercial fields at order
// time. It never references the live cart row.
type LineSnapshot struct {
	ProductID   string             `json:"productId"`
	ProductName string             `json:"productName"`
	Quantity    int                `json:"quantity"`
	Unit        catalog.UnitOption `json:"unit"`
	Price       decimal.Decimal    `json:"price"`
	FinalPrice  decimal.Decimal    `json:"finalPrice"`
}

// Order is an immutable purchase record; only status and delivery metadata
// change after creation.
type Order struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"ownerId"`
	Items             []LineSnapshot  `json:"items"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	PaymentReference  string          `json:"upiId"`
	Status            Status          `json:"status"`
	EstimatedDelivery time.Time       `json:"estimatedDeliveryTime"`
	TrackingNotes     string          `json:"trackingNotes"`
	DeliveryAddress   *string         `json:"deliveryAddress,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// ItemCount returns the number of units across all lines.
func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// FulfillmentUpdate carries optional delivery metadata for a status advance.
type FulfillmentUpdate struct {
	TrackingNotes     *string
	DeliveryAddress   *string
	EstimatedDelivery *time.Time
}

// Repository persists orders.
type Repository interface {
	Insert(ctx context.Context, o Order) (Order, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Order, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Latest(ctx context.Context, ownerID string) (Order, error)
	GetForOwner(ctx context.Context, ownerID, id string) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	// AdvanceStatus moves the order from one status to another only if it is
	// still in from; otherwise ErrStatusConflict.
	AdvanceStatus(ctx context.Context, id string, from, to Status, update FulfillmentUpdate) (Order, error)
}
