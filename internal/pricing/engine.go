package pricing

import "time"

// Promo is a temporary price with an expiry. Both fields always travel
// together; a product either has a full promo or none at all.
type Promo struct {
	Price     Money     `json:"price"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Active reports whether the promo price is in effect at the given instant.
// A zero expiry counts as already expired.
func (p *Promo) Active(now time.Time) bool {
	if p == nil || p.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(p.ExpiresAt)
}

// Effective resolves the unit price in effect at now: the promo price while
// it is strictly before its expiry, the permanent price otherwise.
func Effective(permanent Money, promo *Promo, now time.Time) Money {
	if promo.Active(now) {
		return promo.Price
	}
	return permanent
}

// ChangeDue computes the change owed for a payment against a total.
// Underpayment yields zero rather than a negative amount.
func ChangeDue(total, payment Money) Money {
	if payment <= total {
		return 0
	}
	return payment - total
}
