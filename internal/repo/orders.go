package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/order"
)

// Orders persists placed orders.
type Orders struct {
	db DBTX
}

// NewOrders constructs an Orders repository.
func NewOrders(db DBTX) *Orders {
	return &Orders{db: db}
}

const orderColumns = `id::text, owner_id, order_items, total_price::text, upi_id, status,
	estimated_delivery_time, tracking_notes, delivery_address, created_at`

// storedLine is the order_items column layout. It stays snake_case whatever
// the API renders.
type storedLine struct {
	ProductID   string             `json:"product_id"`
	ProductName string             `json:"product_name"`
	Quantity    int                `json:"quantity"`
	Unit        catalog.UnitOption `json:"unit"`
	Price       decimal.Decimal    `json:"price"`
	FinalPrice  decimal.Decimal    `json:"final_price"`
}

func encodeLines(lines []order.LineSnapshot) ([]byte, error) {
	out := make([]storedLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, storedLine(l))
	}
	return json.Marshal(out)
}

func decodeLines(raw []byte) ([]order.LineSnapshot, error) {
	var stored []storedLine
	if err := DecodeJSON(raw, &stored); err != nil {
		return nil, err
	}
	out := make([]order.LineSnapshot, 0, len(stored))
	for _, l := range stored {
		out = append(out, order.LineSnapshot(l))
	}
	return out, nil
}

// Insert writes a new order and returns it with its generated id.
func (r *Orders) Insert(ctx context.Context, o order.Order) (order.Order, error) {
	items, err := encodeLines(o.Items)
	if err != nil {
		return order.Order{}, fmt.Errorf("encode order items: %w", err)
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	const stmt = `
INSERT INTO orders (owner_id, order_items, total_price, upi_id, status, estimated_delivery_time, tracking_notes, delivery_address, created_at)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

	stored, err := scanOrder(r.db.QueryRow(ctx, stmt,
		o.OwnerID,
		items,
		o.TotalPrice.String(),
		o.PaymentReference,
		string(o.Status),
		o.EstimatedDelivery,
		o.TrackingNotes,
		o.DeliveryAddress,
		createdAt,
	))
	if err != nil {
		return order.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return stored, nil
}

// ListByOwner returns a page of the owner's orders, newest first.
func (r *Orders) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// CountByOwner returns the number of orders of the owner.
func (r *Orders) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE owner_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// Latest returns the owner's newest order.
func (r *Orders) Latest(ctx context.Context, ownerID string) (order.Order, error) {
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, ownerID)
}

// GetForOwner returns one order if it belongs to the owner.
func (r *Orders) GetForOwner(ctx context.Context, ownerID, id string) (order.Order, error) {
	if !validUUID(id) {
		return order.Order{}, order.ErrNotFound
	}
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND owner_id = $2`, id, ownerID)
}

// Get returns one order regardless of owner.
func (r *Orders) Get(ctx context.Context, id string) (order.Order, error) {
	if !validUUID(id) {
		return order.Order{}, order.ErrNotFound
	}
	return r.one(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// AdvanceStatus moves the order to the next status if it is still in from.
func (r *Orders) AdvanceStatus(ctx context.Context, id string, from, to order.Status, update order.FulfillmentUpdate) (order.Order, error) {
	if !validUUID(id) {
		return order.Order{}, order.ErrNotFound
	}
	const stmt = `
UPDATE orders
SET status = $3,
    tracking_notes = COALESCE($4::text, tracking_notes),
    delivery_address = COALESCE($5::text, delivery_address),
    estimated_delivery_time = COALESCE($6::timestamptz, estimated_delivery_time)
WHERE id = $1 AND status = $2
RETURNING ` + orderColumns

	o, err := r.one(ctx, stmt, id, string(from), string(to), update.TrackingNotes, update.DeliveryAddress, update.EstimatedDelivery)
	if errors.Is(err, order.ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return order.Order{}, getErr
		}
		return order.Order{}, order.ErrStatusConflict
	}
	return o, err
}

func (r *Orders) one(ctx context.Context, sql string, args ...any) (order.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var (
		o      order.Order
		items  []byte
		total  string
		status string
	)
	err := row.Scan(&o.ID, &o.OwnerID, &items, &total, &o.PaymentReference, &status,
		&o.EstimatedDelivery, &o.TrackingNotes, &o.DeliveryAddress, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, err
		}
		return order.Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = order.Status(status)
	if o.TotalPrice, err = parseDecimal(total); err != nil {
		return order.Order{}, err
	}
	if o.Items, err = decodeLines(items); err != nil {
		return order.Order{}, fmt.Errorf("order %s items: %w", o.ID, err)
	}
	return o, nil
}
