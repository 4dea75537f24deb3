package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnitOption is a purchasable fraction or multiple of a product's base unit,
// e.g. "500 g" with multiplier 0.5 of a "kg" base.
type UnitOption struct {
	Label      string          `json:"label"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Unit       string          `json:"unit"`
}

// Valid reports whether the option can be priced.
func (u UnitOption) Valid() bool {
	return strings.TrimSpace(u.Label) != "" && u.Multiplier.IsPositive()
}

// Product is a catalog entry sold per base unit.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit"`
	UnitOptions []UnitOption    `json:"unitOptions"`
	ImageURL    string          `json:"image,omitempty"`
	Description string          `json:"description,omitempty"`
}

// BaseOption returns the option representing exactly one base unit.
func (p Product) BaseOption() UnitOption {
	unit := strings.TrimSpace(p.Unit)
	if unit == "" {
		unit = "unit"
	}
	return UnitOption{Label: "1 " + unit, Multiplier: decimal.NewFromInt(1), Unit: unit}
}

// Options returns the purchasable options, falling back to the base unit when
// the catalog row carries none.
func (p Product) Options() []UnitOption {
	out := make([]UnitOption, 0, len(p.UnitOptions))
	for _, opt := range p.UnitOptions {
		if opt.Valid() {
			out = append(out, opt)
		}
	}
	if len(out) == 0 {
		out = append(out, p.BaseOption())
	}
	return out
}

// Option resolves an option by label. An empty label selects the first option.
func (p Product) Option(label string) (UnitOption, bool) {
	options := p.Options()
	label = strings.TrimSpace(label)
	if label == "" {
		return options[0], true
	}
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt.Label), label) {
			return opt, true
		}
	}
	return UnitOption{}, false
}

// Sellable reports whether the product carries a positive base price.
func (p Product) Sellable() bool {
	return strings.TrimSpace(p.ID) != "" && p.Price.IsPositive()
}
