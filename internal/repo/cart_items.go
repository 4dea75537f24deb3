package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/cart"
)

// CartItems persists authenticated cart lines.
type CartItems struct {
	db DBTX
}

// NewCartItems constructs a CartItems repository.
func NewCartItems(db DBTX) *CartItems {
	return &CartItems{db: db}
}

const cartItemColumns = `id::text, owner_id, product_id::text, product_name, price::text, quantity, selected_unit, final_price::text`

// ListByOwner returns the owner's lines in insertion order.
func (r *CartItems) ListByOwner(ctx context.Context, ownerID string) ([]cart.LineItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var out []cart.LineItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return out, nil
}

// Upsert inserts the line or adds its quantity to the existing row with the
// same (owner, product, unit label).
func (r *CartItems) Upsert(ctx context.Context, item cart.LineItem) (cart.LineItem, error) {
	unit, err := json.Marshal(item.SelectedUnit)
	if err != nil {
		return cart.LineItem{}, fmt.Errorf("encode selected unit: %w", err)
	}
	const stmt = `
INSERT INTO cart_items (owner_id, product_id, product_name, price, quantity, selected_unit, unit_label, final_price)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8::numeric)
ON CONFLICT ON CONSTRAINT cart_items_owner_product_unit_key
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
RETURNING ` + cartItemColumns

	stored, err := scanCartItem(r.db.QueryRow(ctx, stmt,
		item.OwnerID,
		item.ProductID,
		item.ProductName,
		item.BasePrice.String(),
		item.Quantity,
		unit,
		item.UnitLabel(),
		item.FinalPrice.String(),
	))
	if err != nil {
		return cart.LineItem{}, fmt.Errorf("upsert cart item: %w", err)
	}
	return stored, nil
}

// UpdateQuantity sets the quantity of one line. Price columns are untouched.
func (r *CartItems) UpdateQuantity(ctx context.Context, ownerID, id string, quantity int) error {
	if !validUUID(id) {
		return fmt.Errorf("cart item %s: %w", id, cart.ErrNotFound)
	}
	tag, err := r.db.Exec(ctx, `UPDATE cart_items SET quantity = $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2`, ownerID, id, quantity)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart item %s: %w", id, cart.ErrNotFound)
	}
	return nil
}

// Delete removes one line. A missing row is not an error.
func (r *CartItems) Delete(ctx context.Context, ownerID, id string) error {
	if !validUUID(id) {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1 AND id = $2`, ownerID, id); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// DeleteByOwner removes every line of the owner.
func (r *CartItems) DeleteByOwner(ctx context.Context, ownerID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// ReleaseClaims takes each claimed quantity off its row. Rows left with no
// units are deleted; the rest keep the difference. Unknown ids are ignored.
func (r *CartItems) ReleaseClaims(ctx context.Context, ownerID string, claims []cart.Claim) (deleted, reduced int64, err error) {
	qty := make(map[string]int32, len(claims))
	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		id := strings.TrimSpace(c.ID)
		if !validUUID(id) || c.Quantity <= 0 {
			continue
		}
		if _, seen := qty[id]; !seen {
			ids = append(ids, id)
		}
		qty[id] += int32(c.Quantity)
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}
	amounts := make([]int32, len(ids))
	for i, id := range ids {
		amounts[i] = qty[id]
	}

	const q = `
WITH claim AS (
	SELECT unnest($2::uuid[]) AS id, unnest($3::int[]) AS qty
), gone AS (
	DELETE FROM cart_items c USING claim
	WHERE c.owner_id = $1 AND c.id = claim.id AND c.quantity <= claim.qty
	RETURNING c.id
), kept AS (
	UPDATE cart_items c SET quantity = c.quantity - claim.qty, updated_at = NOW()
	FROM claim
	WHERE c.owner_id = $1 AND c.id = claim.id AND c.quantity > claim.qty
	RETURNING c.id
)
SELECT (SELECT count(*) FROM gone), (SELECT count(*) FROM kept)`
	if err := r.db.QueryRow(ctx, q, ownerID, ids, amounts).Scan(&deleted, &reduced); err != nil {
		return 0, 0, fmt.Errorf("release cart items: %w", err)
	}
	return deleted, reduced, nil
}

func scanCartItem(row pgx.Row) (cart.LineItem, error) {
	var (
		it         cart.LineItem
		price      string
		finalPrice string
		unit       []byte
	)
	if err := row.Scan(&it.ID, &it.OwnerID, &it.ProductID, &it.ProductName, &price, &it.Quantity, &unit, &finalPrice); err != nil {
		return cart.LineItem{}, fmt.Errorf("scan cart item: %w", err)
	}
	var err error
	if it.BasePrice, err = parseDecimal(price); err != nil {
		return cart.LineItem{}, err
	}
	if it.FinalPrice, err = parseDecimal(finalPrice); err != nil {
		return cart.LineItem{}, err
	}
	if err := DecodeJSON(unit, &it.SelectedUnit); err != nil {
		return cart.LineItem{}, fmt.Errorf("cart item %s selected unit: %w", it.ID, err)
	}
	return it, nil
}
