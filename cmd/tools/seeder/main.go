package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-kasir/internal/db"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

type seedProduct struct {
	Barcode   string
	Name      string
	Price     string
	TempPrice string
	ExpiresIn time.Duration
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := db.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProducts(ctx, pool)
	log.Println("Seeding completed successfully!")
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool) {
	products := []seedProduct{
		{Barcode: "8991002100015", Name: "Susu UHT 1L", Price: "18.50"},
		{Barcode: "8991002100022", Name: "Roti Tawar", Price: "14.00"},
		{Barcode: "8991002100039", Name: "Kopi Bubuk 200g", Price: "32.00", TempPrice: "27.50", ExpiresIn: 7 * 24 * time.Hour},
		{Barcode: "8991002100046", Name: "Gula Pasir 1kg", Price: "16.00"},
		{Barcode: "8991002100053", Name: "Minyak Goreng 2L", Price: "38.00", TempPrice: "34.00", ExpiresIn: 3 * 24 * time.Hour},
		{Barcode: "8991002100060", Name: "Beras Premium 5kg", Price: "72.00"},
		{Barcode: "8991002100077", Name: "Telur Ayam 10pcs", Price: "28.50"},
		{Barcode: "8991002100084", Name: "Mie Instan Goreng", Price: "3.50"},
		{Barcode: "8991002100091", Name: "Teh Celup 25pcs", Price: "11.00"},
		{Barcode: "8991002100107", Name: "Sabun Mandi", Price: "8.50"},
	}

	log.Println("Seeding products...")
	const query = `
INSERT INTO products (barcode, name, price, promo_price, promo_expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (barcode) DO UPDATE
SET name = EXCLUDED.name,
    price = EXCLUDED.price,
    promo_price = EXCLUDED.promo_price,
    promo_expires_at = EXCLUDED.promo_expires_at,
    updated_at = now()`

	for _, p := range products {
		price, err := pricing.ParseAmount(p.Price)
		if err != nil {
			log.Fatalf("Invalid price for %s: %v", p.Barcode, err)
		}
		var (
			promoPrice  *int64
			promoExpiry *time.Time
		)
		if p.TempPrice != "" {
			amount, err := pricing.ParseAmount(p.TempPrice)
			if err != nil {
				log.Fatalf("Invalid temp price for %s: %v", p.Barcode, err)
			}
			expiry := time.Now().Add(p.ExpiresIn)
			promoPrice = &amount
			promoExpiry = &expiry
		}
		if _, err := pool.Exec(ctx, query, p.Barcode, p.Name, price, promoPrice, promoExpiry); err != nil {
			log.Fatalf("Failed to seed %s: %v", p.Barcode, err)
		}
		log.Printf("Seeded %s (%s)", p.Name, p.Barcode)
	}
}
