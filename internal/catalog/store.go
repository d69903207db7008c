package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/pricing"
)

// ErrNotFound indicates the barcode has no catalog record.
var ErrNotFound = errors.New("catalog: product not found")

// ErrExists indicates the barcode is already registered.
var ErrExists = errors.New("catalog: barcode already registered")

const pgUniqueViolation = "23505"

// PGStore persists products in Postgres keyed by barcode.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewPGStore constructs a store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

// GetProduct loads a product by barcode.
func (s *PGStore) GetProduct(ctx context.Context, barcode string) (Product, error) {
	const query = `
SELECT barcode, name, price, promo_price, promo_expires_at, created_at, updated_at
FROM products WHERE barcode = $1`
	var (
		p           Product
		promoPrice  *int64
		promoExpiry *time.Time
	)
	row := s.Pool.QueryRow(ctx, query, barcode)
	if err := row.Scan(&p.Barcode, &p.Name, &p.Price, &promoPrice, &promoExpiry, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	if promoPrice != nil && promoExpiry != nil {
		p.Promo = &pricing.Promo{Price: *promoPrice, ExpiresAt: *promoExpiry}
	}
	return p, nil
}

// InsertProduct creates a new catalog record. A duplicate barcode surfaces
// as ErrExists via the primary key constraint.
func (s *PGStore) InsertProduct(ctx context.Context, p Product) (Product, error) {
	const query = `
INSERT INTO products (barcode, name, price, promo_price, promo_expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING barcode, name, price, created_at, updated_at`
	promoPrice, promoExpiry := promoColumns(p.Promo)
	row := s.Pool.QueryRow(ctx, query, p.Barcode, p.Name, p.Price, promoPrice, promoExpiry)
	var out Product
	if err := row.Scan(&out.Barcode, &out.Name, &out.Price, &out.CreatedAt, &out.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Product{}, ErrExists
		}
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	out.Promo = p.Promo
	return out, nil
}

// UpdatePrices overwrites the permanent price and sets or clears the promo
// pair atomically.
func (s *PGStore) UpdatePrices(ctx context.Context, barcode string, price pricing.Money, promo *pricing.Promo) (Product, error) {
	const query = `
UPDATE products
SET price = $2, promo_price = $3, promo_expires_at = $4, updated_at = now()
WHERE barcode = $1
RETURNING barcode, name, price, created_at, updated_at`
	promoPrice, promoExpiry := promoColumns(promo)
	row := s.Pool.QueryRow(ctx, query, barcode, price, promoPrice, promoExpiry)
	var out Product
	if err := row.Scan(&out.Barcode, &out.Name, &out.Price, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("update prices: %w", err)
	}
	out.Promo = promo
	return out, nil
}

// ClearPromoIfExpired drops the promo pair for one barcode once its expiry
// has passed. Clearing an already-clean record is a no-op.
func (s *PGStore) ClearPromoIfExpired(ctx context.Context, barcode string, now time.Time) (bool, error) {
	const query = `
UPDATE products
SET promo_price = NULL, promo_expires_at = NULL, updated_at = now()
WHERE barcode = $1 AND promo_expires_at IS NOT NULL AND promo_expires_at <= $2`
	tag, err := s.Pool.Exec(ctx, query, barcode, now)
	if err != nil {
		return false, fmt.Errorf("clear promo: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClearExpiredPromos drops every promo pair whose expiry has passed and
// reports how many records were touched.
func (s *PGStore) ClearExpiredPromos(ctx context.Context, now time.Time) (int64, error) {
	const query = `
UPDATE products
SET promo_price = NULL, promo_expires_at = NULL, updated_at = now()
WHERE promo_expires_at IS NOT NULL AND promo_expires_at <= $1`
	tag, err := s.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired promos: %w", err)
	}
	return tag.RowsAffected(), nil
}

func promoColumns(promo *pricing.Promo) (*int64, *time.Time) {
	if promo == nil {
		return nil, nil
	}
	price := promo.Price
	expiry := promo.ExpiresAt
	return &price, &expiry
}
