package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	// TypePromoSweep clears every expired promo pair. Enqueued periodically.
	TypePromoSweep = "catalog:promo_sweep"
	// TypePromoExpire clears the promo pair of one product. Scheduled for the
	// promo's expiry instant when a temporary price is set.
	TypePromoExpire = "catalog:promo_expire"
)

// PromoExpirePayload identifies the product whose promo should be cleared.
type PromoExpirePayload struct {
	Barcode string `json:"barcode"`
}

// NewPromoExpireTask builds the delayed cleanup task for one barcode.
func NewPromoExpireTask(barcode string) (*asynq.Task, error) {
	if barcode == "" {
		return nil, errors.New("queue: barcode is required")
	}
	payload, err := json.Marshal(PromoExpirePayload{Barcode: barcode})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePromoExpire, payload), nil
}

// ParsePromoExpirePayload decodes the payload of a promo-expire task.
func ParsePromoExpirePayload(t *asynq.Task) (PromoExpirePayload, error) {
	var p PromoExpirePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return PromoExpirePayload{}, fmt.Errorf("queue: decode promo expire payload: %w", err)
	}
	if p.Barcode == "" {
		return PromoExpirePayload{}, errors.New("queue: promo expire payload missing barcode")
	}
	return p, nil
}

// Scheduler enqueues delayed tasks through an asynq client.
type Scheduler struct {
	Client *asynq.Client
}

// SchedulePromoExpiry schedules a promo cleanup shortly after the expiry
// instant. Replacing a promo schedules a second task; the cleanup predicate
// only clears promos that are actually expired, so a stale task is harmless.
func (s Scheduler) SchedulePromoExpiry(_ context.Context, barcode string, at time.Time) error {
	if s.Client == nil {
		return errors.New("queue: asynq client not configured")
	}
	task, err := NewPromoExpireTask(barcode)
	if err != nil {
		return err
	}
	_, err = s.Client.Enqueue(task,
		asynq.ProcessAt(at.Add(time.Minute)),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	return err
}
