package scan

import "time"

// DefaultCooldown matches the duplicate-suppression window a continuously
// decoding camera feed needs to avoid double-counting a held-up barcode.
const DefaultCooldown = 1500 * time.Millisecond

// Debouncer suppresses repeat detections of the same barcode within a
// cooldown window. It is duplicate suppression for a live scanner feed,
// not a rate limiter: a different barcode is always accepted immediately.
type Debouncer struct {
	cooldown time.Duration
	lastCode string
	lastAt   time.Time
}

// NewDebouncer constructs a debouncer. Non-positive cooldowns fall back to
// DefaultCooldown.
func NewDebouncer(cooldown time.Duration) *Debouncer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Debouncer{cooldown: cooldown}
}

// Accept reports whether a detection should be processed. Accepted events
// update the internal state; rejected events leave it untouched. The first
// event ever seen is always accepted.
func (d *Debouncer) Accept(barcode string, now time.Time) bool {
	if !d.lastAt.IsZero() && barcode == d.lastCode && now.Sub(d.lastAt) < d.cooldown {
		return false
	}
	d.lastCode = barcode
	d.lastAt = now
	return true
}
