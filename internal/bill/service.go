package bill

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/scan"
)

// ErrSessionNotFound indicates the billing session does not exist or expired.
var ErrSessionNotFound = errors.New("bill: session not found")

// Catalog resolves a barcode into a product and its effective unit price.
type Catalog interface {
	Lookup(ctx context.Context, barcode string, now time.Time) (catalog.Product, pricing.Money, error)
}

// Emitter publishes domain events for billing activity.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Outcome classifies the result of feeding one scan into a session.
type Outcome string

const (
	// OutcomeAdded means the scan created or incremented a bill line.
	OutcomeAdded Outcome = "added"
	// OutcomeDuplicate means the scan was suppressed by the cooldown window.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeNotFound means the barcode has no catalog record.
	OutcomeNotFound Outcome = "not_found"
)

// ScanResult reports what a scan did to the bill.
type ScanResult struct {
	Outcome Outcome
	Line    Line
	Total   pricing.Money
}

// Snapshot is the read-only view of a session handed to the presentation layer.
type Snapshot struct {
	ID        string
	Lines     []Line
	Total     pricing.Money
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Settlement is the result of closing out a bill against a payment.
type Settlement struct {
	Total        pricing.Money
	Payment      pricing.Money
	Change       pricing.Money
	Insufficient bool
}

// Session is one billing run: a ledger, its debouncer, and the scanner feed
// subscription. It is discarded wholesale when the session closes.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu     sync.Mutex
	ledger *Ledger
	deb    *scan.Debouncer
	source *scan.Source
	result ScanResult
}

// Service owns the in-memory registry of billing sessions. Bills are
// ephemeral by design: nothing survives a close or a restart.
type Service struct {
	Catalog     Catalog
	Events      Emitter
	Cooldown    time.Duration
	TTL         time.Duration
	Symbologies scan.Allowlist
	Now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 4 * time.Hour
	}
	return s.TTL
}

// Open starts a new billing session and wires its scanner subscription.
func (s *Service) Open(ctx context.Context) (Snapshot, error) {
	if s == nil || s.Catalog == nil {
		return Snapshot{}, errors.New("bill service not configured")
	}
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
		ledger:    NewLedger(),
		deb:       scan.NewDebouncer(s.Cooldown),
		source:    scan.NewSource(),
	}
	if err := sess.source.Subscribe(s.scanHandler(sess)); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*Session)
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	obs.BillsOpenedTotal.Inc()
	s.emit(ctx, events.TopicBillOpened, sess.ID, map[string]any{"openedAt": now})
	return s.snapshot(sess), nil
}

// Scan feeds one decoded barcode into the session's scanner source.
func (s *Service) Scan(ctx context.Context, sessionID string, ev scan.Event) (ScanResult, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return ScanResult{}, err
	}
	if strings.TrimSpace(ev.Barcode) == "" {
		return ScanResult{}, common.ValidationError("barcode is required", nil)
	}
	if !s.Symbologies.Allows(ev.Symbology) {
		return ScanResult{}, common.ValidationError("unsupported barcode symbology", map[string]any{"symbology": ev.Symbology})
	}
	if ev.At.IsZero() {
		ev.At = s.now()
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.result = ScanResult{}
	if err := sess.source.Publish(ctx, ev); err != nil {
		if errors.Is(err, scan.ErrClosed) {
			return ScanResult{}, ErrSessionNotFound
		}
		return ScanResult{}, err
	}
	obs.ScansTotal.WithLabelValues(string(sess.result.Outcome)).Inc()
	return sess.result, nil
}

// scanHandler is the single subscriber for a session's scanner feed. It runs
// with the session lock held by Scan.
func (s *Service) scanHandler(sess *Session) scan.Handler {
	return func(ctx context.Context, ev scan.Event) error {
		if !sess.deb.Accept(ev.Barcode, ev.At) {
			sess.result = ScanResult{Outcome: OutcomeDuplicate, Total: sess.ledger.Total()}
			return nil
		}
		product, unitPrice, err := s.Catalog.Lookup(ctx, ev.Barcode, ev.At)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				sess.result = ScanResult{Outcome: OutcomeNotFound, Total: sess.ledger.Total()}
				return nil
			}
			return err
		}
		line := sess.ledger.Add(product.Barcode, product.Name, unitPrice)
		sess.result = ScanResult{Outcome: OutcomeAdded, Line: line, Total: sess.ledger.Total()}
		s.emit(ctx, events.TopicBillItemAdded, sess.ID, map[string]any{
			"barcode":   line.Barcode,
			"qty":       line.Qty,
			"unitPrice": line.UnitPrice,
		})
		return nil
	}
}

// Get returns a display snapshot of the session.
func (s *Service) Get(sessionID string) (Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(sess), nil
}

// Settle computes the total and change for a payment. Underpayment is not an
// error: change clamps to zero and the settlement is flagged insufficient.
// The session stays open so more items can still be scanned.
func (s *Service) Settle(ctx context.Context, sessionID string, payment pricing.Money) (Settlement, error) {
	if payment < 0 {
		return Settlement{}, common.ValidationError("payment must not be negative", nil)
	}
	sess, err := s.lookup(sessionID)
	if err != nil {
		return Settlement{}, err
	}
	sess.mu.Lock()
	total := sess.ledger.Total()
	sess.mu.Unlock()

	settlement := Settlement{
		Total:        total,
		Payment:      payment,
		Change:       pricing.ChangeDue(total, payment),
		Insufficient: payment < total,
	}
	obs.BillsSettledTotal.Inc()
	obs.BillAmount.Observe(float64(total))
	s.emit(ctx, events.TopicBillSettled, sessionID, map[string]any{
		"total":        total,
		"payment":      payment,
		"change":       settlement.Change,
		"insufficient": settlement.Insufficient,
	})
	return settlement, nil
}

// Close tears the session down. The scanner subscription is closed before
// the session is dropped so a late scan cannot touch a dead ledger.
func (s *Service) Close(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.source.Close()
	s.emit(ctx, events.TopicBillClosed, sessionID, map[string]any{"closedAt": s.now()})
	return nil
}

func (s *Service) lookup(sessionID string) (*Session, error) {
	if s == nil {
		return nil, errors.New("bill service not configured")
	}
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().After(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		sess.source.Close()
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) snapshot(sess *Session) Snapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return Snapshot{
		ID:        sess.ID,
		Lines:     sess.ledger.Lines(),
		Total:     sess.ledger.Total(),
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	}
}

func (s *Service) emit(ctx context.Context, topic, aggregateID string, payload any) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, topic, aggregateID, payload)
}
