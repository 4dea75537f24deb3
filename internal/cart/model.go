package cart

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/common"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/pricing"
)

// Identity is the owner key scoping a cart: a signed-in user or an anonymous
// guest session token.
type Identity struct {
	ID            string
	Authenticated bool
}

// Guest builds a guest identity for a session token.
func Guest(sessionID string) Identity {
	return Identity{ID: sessionID}
}

// User builds an authenticated identity.
func User(userID string) Identity {
	return Identity{ID: userID, Authenticated: true}
}

func (i Identity) key() string {
	if i.Authenticated {
		return "user:" + i.ID
	}
	return "guest:" + i.ID
}

// IdentityFromContext resolves the caller identity. An authenticated user wins
// over a guest session.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if uid, ok := common.UserID(ctx); ok {
		return User(uid), true
	}
	if sid, ok := common.SessionID(ctx); ok {
		return Guest(sid), true
	}
	return Identity{}, false
}

// LineItem is one priced cart row. FinalPrice is frozen when the row is
// created and never follows later catalog price changes.
type LineItem struct {
	ID           string             `json:"id"`
	OwnerID      string             `json:"ownerId"`
	ProductID    string             `json:"productId"`
	ProductName  string             `json:"productName"`
	BasePrice    decimal.Decimal    `json:"price"`
	Quantity     int                `json:"quantity"`
	SelectedUnit catalog.UnitOption `json:"selectedUnit"`
	FinalPrice   decimal.Decimal    `json:"finalPrice"`
}

// NewLineItem prices a product in the selected unit for the owner with a
// quantity of one.
func NewLineItem(owner string, product catalog.Product, unit catalog.UnitOption) LineItem {
	return LineItem{
		OwnerID:      owner,
		ProductID:    product.ID,
		ProductName:  product.Name,
		BasePrice:    product.Price,
		Quantity:     1,
		SelectedUnit: unit,
		FinalPrice:   pricing.Price(product.Price, unit.Multiplier),
	}
}

// LineTotal returns FinalPrice * Quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return pricing.LineTotal(l.FinalPrice, l.Quantity)
}

// Matches reports whether the line has the merge identity (product, unit label).
func (l LineItem) Matches(productID, unitLabel string) bool {
	return l.ProductID == productID && strings.EqualFold(strings.TrimSpace(l.SelectedUnit.Label), strings.TrimSpace(unitLabel))
}

// UnitLabel returns the normalised label used in the merge identity.
func (l LineItem) UnitLabel() string {
	return strings.TrimSpace(l.SelectedUnit.Label)
}

// Claim is the quantity of a persisted row that a placed order consumed.
// Releasing it takes that many units off the row, so units added after the
// order stay in the cart.
type Claim struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// ClaimsOf captures the rows and quantities of items.
func ClaimsOf(items []LineItem) []Claim {
	out := make([]Claim, 0, len(items))
	for _, it := range items {
		out = append(out, Claim{ID: it.ID, Quantity: it.Quantity})
	}
	return out
}
