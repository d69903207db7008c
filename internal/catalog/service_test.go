package catalog_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("kasir_test", prometheus.NewRegistry())
	os.Exit(m.Run())
}

type fakeStore struct {
	products map[string]catalog.Product
	updated  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[string]catalog.Product), updated: make(map[string]int)}
}

func (s *fakeStore) GetProduct(_ context.Context, barcode string) (catalog.Product, error) {
	p, ok := s.products[barcode]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) InsertProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	if _, ok := s.products[p.Barcode]; ok {
		return catalog.Product{}, catalog.ErrExists
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.products[p.Barcode] = p
	return p, nil
}

func (s *fakeStore) UpdatePrices(_ context.Context, barcode string, price pricing.Money, promo *pricing.Promo) (catalog.Product, error) {
	p, ok := s.products[barcode]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	p.Price = price
	p.Promo = promo
	p.UpdatedAt = time.Now()
	s.products[barcode] = p
	s.updated[barcode]++
	return p, nil
}

func (s *fakeStore) ClearPromoIfExpired(_ context.Context, barcode string, now time.Time) (bool, error) {
	p, ok := s.products[barcode]
	if !ok || p.Promo == nil || p.Promo.ExpiresAt.After(now) {
		return false, nil
	}
	p.Promo = nil
	s.products[barcode] = p
	return true, nil
}

func (s *fakeStore) ClearExpiredPromos(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for barcode, p := range s.products {
		if p.Promo != nil && !p.Promo.ExpiresAt.After(now) {
			p.Promo = nil
			s.products[barcode] = p
			n++
		}
	}
	return n, nil
}

type recordScheduler struct {
	barcodes []string
	at       []time.Time
	err      error
}

func (r *recordScheduler) SchedulePromoExpiry(_ context.Context, barcode string, at time.Time) error {
	r.barcodes = append(r.barcodes, barcode)
	r.at = append(r.at, at)
	return r.err
}

type recordEmitter struct {
	topics []string
}

func (r *recordEmitter) Emit(_ context.Context, topic, _ string, _ any) (events.Event, error) {
	r.topics = append(r.topics, topic)
	return events.Event{Topic: topic}, nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)
}

func newService(store catalog.Store) (*catalog.Service, *recordEmitter, *recordScheduler) {
	emitter := &recordEmitter{}
	sched := &recordScheduler{}
	svc := &catalog.Service{
		Store:  store,
		Tasks:  sched,
		Events: emitter,
		Now:    fixedNow,
	}
	return svc, emitter, sched
}

func TestRegisterAndLookup(t *testing.T) {
	store := newFakeStore()
	svc, emitter, _ := newService(store)

	p, err := svc.Register(context.Background(), catalog.RegisterInput{
		Barcode: "8991002100015",
		Name:    "Milk 1L",
		Price:   250,
	})
	require.NoError(t, err)
	require.Equal(t, "Milk 1L", p.Name)
	require.Nil(t, p.Promo)
	require.Contains(t, emitter.topics, events.TopicProductRegistered)

	got, effective, err := svc.Lookup(context.Background(), "8991002100015", fixedNow())
	require.NoError(t, err)
	require.Equal(t, p.Barcode, got.Barcode)
	require.Equal(t, pricing.Money(250), effective)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newService(newFakeStore())

	cases := []catalog.RegisterInput{
		{Barcode: "", Name: "Milk", Price: 100},
		{Barcode: "123", Name: "  ", Price: 100},
		{Barcode: "123", Name: "Milk", Price: -1},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, common.CodeValidation, appErr.Code)
	}
}

func TestRegisterDuplicateBarcode(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newService(store)

	in := catalog.RegisterInput{Barcode: "123", Name: "Milk", Price: 100}
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), in)
	require.ErrorIs(t, err, catalog.ErrExists)
}

func TestLookupUnknownBarcode(t *testing.T) {
	svc, _, _ := newService(newFakeStore())

	_, _, err := svc.Lookup(context.Background(), "missing", fixedNow())
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestModifyPriceSetsPromoPair(t *testing.T) {
	store := newFakeStore()
	svc, emitter, sched := newService(store)

	_, err := svc.Register(context.Background(), catalog.RegisterInput{Barcode: "123", Name: "Milk", Price: 250})
	require.NoError(t, err)

	expiry := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	p, err := svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{
		Price: 250,
		Promo: &pricing.Promo{Price: 200, ExpiresAt: expiry},
	})
	require.NoError(t, err)
	require.NotNil(t, p.Promo)
	require.Equal(t, pricing.Money(200), p.Promo.Price)
	require.Contains(t, emitter.topics, events.TopicProductPriceChanged)
	require.Equal(t, []string{"123"}, sched.barcodes)

	_, effective, err := svc.Lookup(context.Background(), "123", fixedNow())
	require.NoError(t, err)
	require.Equal(t, pricing.Money(200), effective)
}

func TestModifyPriceClearsPromo(t *testing.T) {
	store := newFakeStore()
	svc, _, sched := newService(store)

	_, err := svc.Register(context.Background(), catalog.RegisterInput{Barcode: "123", Name: "Milk", Price: 250})
	require.NoError(t, err)

	expiry := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	_, err = svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{
		Price: 250,
		Promo: &pricing.Promo{Price: 200, ExpiresAt: expiry},
	})
	require.NoError(t, err)

	p, err := svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{Price: 300})
	require.NoError(t, err)
	require.Nil(t, p.Promo)
	require.Len(t, sched.barcodes, 1)
}

func TestModifyPriceRejectsExpiryNotAfterToday(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newService(store)

	_, err := svc.Register(context.Background(), catalog.RegisterInput{Barcode: "123", Name: "Milk", Price: 250})
	require.NoError(t, err)

	// Same calendar day as now, even a later clock time, is rejected.
	sameDay := time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
	_, err = svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{
		Price: 250,
		Promo: &pricing.Promo{Price: 200, ExpiresAt: sameDay},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)

	past := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	_, err = svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{
		Price: 250,
		Promo: &pricing.Promo{Price: 200, ExpiresAt: past},
	})
	require.ErrorAs(t, err, &appErr)
}

func TestModifyPriceRejectsNegativeAmounts(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newService(store)

	_, err := svc.Register(context.Background(), catalog.RegisterInput{Barcode: "123", Name: "Milk", Price: 250})
	require.NoError(t, err)

	var appErr *common.AppError
	_, err = svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{Price: -1})
	require.ErrorAs(t, err, &appErr)

	expiry := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	_, err = svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{
		Price: 250,
		Promo: &pricing.Promo{Price: -5, ExpiresAt: expiry},
	})
	require.ErrorAs(t, err, &appErr)
	require.Zero(t, store.updated["123"])
}

func TestModifyPriceUnknownBarcode(t *testing.T) {
	svc, _, _ := newService(newFakeStore())

	_, err := svc.ModifyPrice(context.Background(), "missing", catalog.ModifyPriceInput{Price: 100})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSchedulerFailureDoesNotFailModify(t *testing.T) {
	store := newFakeStore()
	svc, _, sched := newService(store)
	sched.err = errors.New("queue down")

	_, err := svc.Register(context.Background(), catalog.RegisterInput{Barcode: "123", Name: "Milk", Price: 250})
	require.NoError(t, err)

	expiry := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	_, err = svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{
		Price: 250,
		Promo: &pricing.Promo{Price: 200, ExpiresAt: expiry},
	})
	require.NoError(t, err)
}

func TestClearPromoLifecycle(t *testing.T) {
	store := newFakeStore()
	svc, _, _ := newService(store)

	_, err := svc.Register(context.Background(), catalog.RegisterInput{Barcode: "123", Name: "Milk", Price: 250})
	require.NoError(t, err)

	expiry := time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)
	_, err = svc.ModifyPrice(context.Background(), "123", catalog.ModifyPriceInput{
		Price: 250,
		Promo: &pricing.Promo{Price: 200, ExpiresAt: expiry},
	})
	require.NoError(t, err)

	// Promo still in its window: nothing to clear.
	cleared, err := svc.ClearPromo(context.Background(), "123")
	require.NoError(t, err)
	require.False(t, cleared)

	// Move past expiry and sweep.
	svc.Now = func() time.Time { return expiry.Add(time.Hour) }
	n, err := svc.ClearExpiredPromos(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	p, err := store.GetProduct(context.Background(), "123")
	require.NoError(t, err)
	require.Nil(t, p.Promo)
}
