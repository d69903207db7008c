package catalog

import (
	"time"

	"github.com/noah-isme/backend-kasir/internal/pricing"
)

// Product is the catalog record for one barcode. The promo pair is either
// fully present or fully absent; a lone temporary price without an expiry
// cannot be represented.
type Product struct {
	Barcode   string         `json:"barcode"`
	Name      string         `json:"name"`
	Price     pricing.Money  `json:"price"`
	Promo     *pricing.Promo `json:"promo,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// EffectivePrice resolves the unit price in effect at now.
func (p Product) EffectivePrice(now time.Time) pricing.Money {
	return pricing.Effective(p.Price, p.Promo, now)
}
