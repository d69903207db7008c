package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

// Store is the persistence boundary for catalog records.
type Store interface {
	GetProduct(ctx context.Context, barcode string) (Product, error)
	InsertProduct(ctx context.Context, p Product) (Product, error)
	UpdatePrices(ctx context.Context, barcode string, price pricing.Money, promo *pricing.Promo) (Product, error)
	ClearPromoIfExpired(ctx context.Context, barcode string, now time.Time) (bool, error)
	ClearExpiredPromos(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler enqueues a delayed cleanup for a promo that will expire.
type Scheduler interface {
	SchedulePromoExpiry(ctx context.Context, barcode string, at time.Time) error
}

// Emitter publishes catalog domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// RegisterInput carries the fields for a new product. New products never
// start with a promo price.
type RegisterInput struct {
	Barcode string
	Name    string
	Price   pricing.Money
}

// ModifyPriceInput overwrites the permanent price and sets or clears the
// promo pair. Promo nil clears any existing promo.
type ModifyPriceInput struct {
	Price pricing.Money
	Promo *pricing.Promo
}

// Service owns product registration, price changes, and lookups.
type Service struct {
	Store  Store
	Cache  *Cache
	Tasks  Scheduler
	Events Emitter
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Lookup resolves a barcode into its product and the unit price in effect at
// now. The cache is consulted first; misses fall through to the store and
// warm the cache.
func (s *Service) Lookup(ctx context.Context, barcode string, now time.Time) (Product, pricing.Money, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, 0, common.ValidationError("barcode is required", nil)
	}
	if p, ok := s.Cache.Get(ctx, barcode); ok {
		obs.CatalogCacheHits.Inc()
		return p, p.EffectivePrice(now), nil
	}
	p, err := s.Store.GetProduct(ctx, barcode)
	if err != nil {
		return Product{}, 0, err
	}
	s.Cache.Set(ctx, p)
	return p, p.EffectivePrice(now), nil
}

// Register creates a new product.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Product, error) {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	if in.Barcode == "" {
		return Product{}, common.ValidationError("barcode is required", nil)
	}
	if in.Name == "" {
		return Product{}, common.ValidationError("name is required", nil)
	}
	if in.Price < 0 {
		return Product{}, common.ValidationError("price must not be negative", nil)
	}
	p, err := s.Store.InsertProduct(ctx, Product{Barcode: in.Barcode, Name: in.Name, Price: in.Price})
	if err != nil {
		return Product{}, err
	}
	s.Cache.Set(ctx, p)
	obs.ProductsRegisteredTotal.Inc()
	s.emit(ctx, events.TopicProductRegistered, p.Barcode, map[string]any{
		"name":  p.Name,
		"price": p.Price,
	})
	return p, nil
}

// ModifyPrice updates the permanent price and the promo pair for a barcode.
// The pair is atomic: a promo price without an expiry, or an expiry that is
// not strictly after today, is rejected before anything is written.
func (s *Service) ModifyPrice(ctx context.Context, barcode string, in ModifyPriceInput) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, common.ValidationError("barcode is required", nil)
	}
	if in.Price < 0 {
		return Product{}, common.ValidationError("price must not be negative", nil)
	}
	if in.Promo != nil {
		if in.Promo.Price < 0 {
			return Product{}, common.ValidationError("temporary price must not be negative", nil)
		}
		if in.Promo.ExpiresAt.IsZero() {
			return Product{}, common.ValidationError("temporary price requires an expiry date", nil)
		}
		if !dateAfter(in.Promo.ExpiresAt, s.now()) {
			return Product{}, common.ValidationError("expiry date must be after today", map[string]any{
				"expiresAt": in.Promo.ExpiresAt.Format("2006-01-02"),
			})
		}
	}
	p, err := s.Store.UpdatePrices(ctx, barcode, in.Price, in.Promo)
	if err != nil {
		return Product{}, err
	}
	s.Cache.Invalidate(ctx, barcode)
	if in.Promo != nil && s.Tasks != nil {
		if err := s.Tasks.SchedulePromoExpiry(ctx, barcode, in.Promo.ExpiresAt); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("barcode", barcode).Msg("schedule promo expiry")
		}
	}
	obs.PriceChangesTotal.Inc()
	s.emit(ctx, events.TopicProductPriceChanged, p.Barcode, map[string]any{
		"price": p.Price,
		"promo": p.Promo,
	})
	return p, nil
}

// ClearPromo drops an expired promo pair for one barcode. Used by the
// delayed worker task; a promo that was replaced or extended in the meantime
// is left alone because the expiry predicate no longer matches.
func (s *Service) ClearPromo(ctx context.Context, barcode string) (bool, error) {
	cleared, err := s.Store.ClearPromoIfExpired(ctx, barcode, s.now())
	if err != nil {
		return false, err
	}
	if cleared {
		s.Cache.Invalidate(ctx, barcode)
		obs.PromosClearedTotal.Inc()
	}
	return cleared, nil
}

// ClearExpiredPromos sweeps every record whose promo has lapsed. Resolution
// already falls back to the permanent price on its own; the sweep keeps the
// stored records tidy.
func (s *Service) ClearExpiredPromos(ctx context.Context) (int64, error) {
	n, err := s.Store.ClearExpiredPromos(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		obs.PromosClearedTotal.Add(float64(n))
	}
	return n, nil
}

func (s *Service) emit(ctx context.Context, topic, aggregateID string, payload any) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, aggregateID, payload)
}

// dateAfter reports whether the calendar date of t falls strictly after the
// calendar date of ref. Times of day are ignored.
func dateAfter(t, ref time.Time) bool {
	ty, tm, td := t.Date()
	ry, rm, rd := ref.Date()
	if ty != ry {
		return ty > ry
	}
	if tm != rm {
		return tm > rm
	}
	return td > rd
}
