package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
)

// Products reads the product catalog.
type Products struct {
	db DBTX
}

// NewProducts constructs a Products repository.
func NewProducts(db DBTX) *Products {
	return &Products{db: db}
}

const productColumns = `id::text, name, price::text, unit, unit_options, image_url, description`

// ListProducts returns every product ordered by name.
func (r *Products) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// GetProduct returns one product or catalog.ErrNotFound.
func (r *Products) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	if !validUUID(id) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, err
	}
	return p, nil
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p       catalog.Product
		price   string
		options []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Unit, &options, &p.ImageURL, &p.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, err
		}
		return catalog.Product{}, fmt.Errorf("scan product: %w", err)
	}
	var err error
	if p.Price, err = parseDecimal(price); err != nil {
		return catalog.Product{}, err
	}
	if err := DecodeJSON(options, &p.UnitOptions); err != nil {
		return catalog.Product{}, fmt.Errorf("product %s unit options: %w", p.ID, err)
	}
	return p, nil
}
