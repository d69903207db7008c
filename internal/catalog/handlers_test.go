package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/catalog"
)

func newTestRouter(svc *catalog.Service) http.Handler {
	h := &catalog.Handler{Svc: svc, Validate: validator.New()}
	r := chi.NewRouter()
	r.Get("/products/{barcode}", h.Get)
	r.Post("/products", h.Register)
	r.Put("/products/{barcode}/price", h.ModifyPrice)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %s", rec.Body.String())
	return data
}

func TestRegisterProductEndpoint(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/products", `{"barcode":"8991002100015","name":"Milk 1L","price":"2.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, "Milk 1L", data["name"])
	require.Equal(t, "2.50", data["price"])
	require.Equal(t, "2.50", data["effectivePrice"])

	rec = doJSON(t, router, http.MethodGet, "/products/8991002100015", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterProductEndpointValidation(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	cases := []string{
		`{"name":"Milk","price":"2.50"}`,
		`{"barcode":"1","price":"2.50"}`,
		`{"barcode":"1","name":"Milk","price":"-2"}`,
		`{"barcode":"1","name":"Milk","price":"abc"}`,
		`{not json`,
	}
	for _, body := range cases {
		rec := doJSON(t, router, http.MethodPost, "/products", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, "body: %s", body)
	}
}

func TestRegisterProductEndpointConflict(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	body := `{"barcode":"1","name":"Milk","price":"2.50"}`
	rec := doJSON(t, router, http.MethodPost, "/products", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/products", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetProductEndpointNotFound(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodGet, "/products/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestModifyPriceEndpoint(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/products", `{"barcode":"1","name":"Milk","price":"2.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/products/1/price", `{"price":"2.50","tempPrice":"2.00","tempPriceExpiry":"2026-03-11"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, "2.00", data["tempPrice"])
	require.Equal(t, "2026-03-11", data["tempPriceExpiry"])
	require.Equal(t, "2.00", data["effectivePrice"])
}

func TestModifyPriceEndpointPromoPairValidation(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/products", `{"barcode":"1","name":"Milk","price":"2.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cases := []string{
		// temp price without expiry
		`{"price":"2.50","tempPrice":"2.00"}`,
		// expiry without temp price
		`{"price":"2.50","tempPriceExpiry":"2026-03-11"}`,
		// malformed expiry
		`{"price":"2.50","tempPrice":"2.00","tempPriceExpiry":"11-03-2026"}`,
		// expiry on the current day
		`{"price":"2.50","tempPrice":"2.00","tempPriceExpiry":"2026-03-10"}`,
	}
	for _, body := range cases {
		rec := doJSON(t, router, http.MethodPut, "/products/1/price", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, "body: %s", body)
	}
}

func TestModifyPriceEndpointClearsPromo(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/products", `{"barcode":"1","name":"Milk","price":"2.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPut, "/products/1/price", `{"price":"2.50","tempPrice":"2.00","tempPriceExpiry":"2026-03-11"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/products/1/price", `{"price":"3.00"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, "3.00", data["price"])
	require.NotContains(t, data, "tempPrice")
	require.Equal(t, "3.00", data["effectivePrice"])
}

func TestPromoExpiryFallsBackOnLookup(t *testing.T) {
	svc, _, _ := newService(newFakeStore())
	router := newTestRouter(svc)

	rec := doJSON(t, router, http.MethodPost, "/products", `{"barcode":"1","name":"Milk","price":"2.50"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPut, "/products/1/price", `{"price":"2.50","tempPrice":"2.00","tempPriceExpiry":"2026-03-11"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// After the expiry instant, resolution falls back to the permanent price
	// even though the stored promo pair is still present.
	svc.Now = func() time.Time { return time.Date(2026, time.March, 12, 9, 0, 0, 0, time.UTC) }
	rec = doJSON(t, router, http.MethodGet, "/products/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	require.Equal(t, "2.50", data["effectivePrice"])
	require.Equal(t, "2.00", data["tempPrice"])
}
