package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ANUSHA12-K/juicy-cart-delight/internal/catalog"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/db"
	"github.com/ANUSHA12-K/juicy-cart-delight/internal/obs"
)

func weightOptions() []catalog.UnitOption {
	return []catalog.UnitOption{
		{Label: "250 g", Multiplier: decimal.RequireFromString("0.25"), Unit: "g"},
		{Label: "500 g", Multiplier: decimal.RequireFromString("0.5"), Unit: "g"},
		{Label: "1 kg", Multiplier: decimal.NewFromInt(1), Unit: "kg"},
		{Label: "2 kg", Multiplier: decimal.NewFromInt(2), Unit: "kg"},
	}
}

func seedProducts() []catalog.Product {
	return []catalog.Product{
		{
			Name: "Fresh Red Apples", Price: decimal.RequireFromString("3.99"), Unit: "kg", UnitOptions: weightOptions(),
			ImageURL:    "https://images.unsplash.com/photo-1560806887-1e4cd0b6cbd6?w=500&h=500&fit=crop&crop=center",
			Description: "Crisp and sweet, perfect for snacking",
		},
		{
			Name: "Juicy Oranges", Price: decimal.RequireFromString("2.99"), Unit: "kg", UnitOptions: weightOptions(),
			ImageURL:    "https://images.unsplash.com/photo-1580052614034-c55d20bfee3b?w=500&h=500&fit=crop&crop=center",
			Description: "Vitamin C packed citrus goodness",
		},
		{
			Name: "Ripe Bananas", Price: decimal.RequireFromString("1.99"), Unit: "dozen",
			UnitOptions: []catalog.UnitOption{
				{Label: "6 pcs", Multiplier: decimal.RequireFromString("0.5"), Unit: "pcs"},
				{Label: "12 pcs", Multiplier: decimal.NewFromInt(1), Unit: "pcs"},
			},
			ImageURL:    "https://images.unsplash.com/photo-1528825871115-3581a5387919?w=500&h=500&fit=crop&crop=center",
			Description: "Energy-rich potassium source",
		},
		{
			Name: "Sweet Strawberries", Price: decimal.RequireFromString("4.99"), Unit: "kg", UnitOptions: weightOptions()[:3],
			ImageURL:    "https://images.unsplash.com/photo-1464965911861-746a04b4bca6?w=500&h=500&fit=crop&crop=center",
			Description: "Antioxidant-rich berry delight",
		},
		{
			Name: "Purple Grapes", Price: decimal.RequireFromString("3.49"), Unit: "kg", UnitOptions: weightOptions(),
			ImageURL:    "https://images.unsplash.com/photo-1537640538966-79f369143f8f?w=500&h=500&fit=crop&crop=center",
			Description: "Sweet and juicy cluster",
		},
		{
			Name: "Tropical Mango", Price: decimal.RequireFromString("2.49"), Unit: "kg", UnitOptions: weightOptions()[1:],
			ImageURL:    "https://images.unsplash.com/photo-1553279013-112d27136a42?w=500&h=500&fit=crop&crop=center",
			Description: "Exotic tropical sweetness",
		},
	}
}

func main() {
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if err := db.Up(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	ids, err := seedCatalog(ctx, conn, seedProducts(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed catalog")
	}
	invalidateCache(ctx, os.Getenv("REDIS_URL"), ids, logger)
	logger.Info().Int("products", len(ids)).Msg("seeding completed")
}

func seedCatalog(ctx context.Context, conn *sql.DB, products []catalog.Product, logger zerolog.Logger) ([]string, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, 0, len(products))
	for _, p := range products {
		options, err := json.Marshal(p.UnitOptions)
		if err != nil {
			return nil, err
		}
		var id string
		err = tx.QueryRowContext(ctx, `
			INSERT INTO products (name, price, unit, unit_options, image_url, description)
			VALUES ($1, $2::numeric, $3, $4::jsonb, $5, $6)
			ON CONFLICT (name) DO UPDATE SET
				price = EXCLUDED.price,
				unit = EXCLUDED.unit,
				unit_options = EXCLUDED.unit_options,
				image_url = EXCLUDED.image_url,
				description = EXCLUDED.description
			RETURNING id::text`,
			p.Name, p.Price.String(), p.Unit, string(options), p.ImageURL, p.Description,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("product", p.Name).Str("id", id).Msg("product upserted")
		ids = append(ids, id)
	}
	return ids, tx.Commit()
}

func invalidateCache(ctx context.Context, redisURL string, ids []string, logger zerolog.Logger) {
	if strings.TrimSpace(redisURL) == "" {
		return
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("parse redis url, catalog cache left as is")
		return
	}
	client := redis.NewClient(opts)
	defer client.Close()
	if err := catalog.NewCache(client, time.Minute).Invalidate(ctx, ids...); err != nil {
		logger.Warn().Err(err).Msg("invalidate catalog cache")
	}
}
