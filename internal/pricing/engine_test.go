package pricing

import (
	"testing"
	"time"
)

func TestEffectiveNoPromo(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if got := Effective(250, nil, now); got != 250 {
		t.Fatalf("expected permanent price 250, got %d", got)
	}
}

func TestEffectivePromoWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	promo := &Promo{Price: 200, ExpiresAt: now.Add(24 * time.Hour)}

	if got := Effective(250, promo, now); got != 200 {
		t.Fatalf("expected promo price 200 before expiry, got %d", got)
	}
	if got := Effective(250, promo, promo.ExpiresAt); got != 250 {
		t.Fatalf("expected permanent price at the expiry instant, got %d", got)
	}
	if got := Effective(250, promo, promo.ExpiresAt.Add(time.Second)); got != 250 {
		t.Fatalf("expected permanent price after expiry, got %d", got)
	}
}

func TestEffectiveZeroExpiryTreatedAsExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	promo := &Promo{Price: 100}
	if got := Effective(250, promo, now); got != 250 {
		t.Fatalf("expected fallback to permanent price, got %d", got)
	}
}

func TestChangeDue(t *testing.T) {
	if got := ChangeDue(250, 300); got != 50 {
		t.Fatalf("expected change 50, got %d", got)
	}
	if got := ChangeDue(250, 250); got != 0 {
		t.Fatalf("expected change 0 on exact payment, got %d", got)
	}
	if got := ChangeDue(250, 100); got != 0 {
		t.Fatalf("expected underpayment clamped to 0, got %d", got)
	}
}
