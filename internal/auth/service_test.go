package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/auth"
	"github.com/noah-isme/backend-kasir/internal/common"
)

func newAuthService(t *testing.T, password string) *auth.Service {
	t.Helper()
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	require.NoError(t, err)
	svc, err := auth.NewService(auth.Config{
		OperatorName:   "kasir",
		PasswordHash:   hash,
		Secret:         "test-secret-at-least-32-characters",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestLoginIssuesToken(t *testing.T) {
	svc := newAuthService(t, "hunter2hunter2")

	result, err := svc.Login(context.Background(), "kasir", "hunter2hunter2")
	require.NoError(t, err)
	require.Equal(t, "kasir", result.Operator)
	require.NotEmpty(t, result.AccessToken)
	require.True(t, result.ExpiresAt.After(time.Now()))

	operator, err := svc.ParseAccessToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "kasir", operator)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthService(t, "hunter2hunter2")

	cases := []struct{ name, password string }{
		{"kasir", "wrong"},
		{"someone", "hunter2hunter2"},
		{"", "hunter2hunter2"},
		{"kasir", ""},
	}
	for _, tc := range cases {
		_, err := svc.Login(context.Background(), tc.name, tc.password)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr, "name=%q", tc.name)
		require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	}
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t, "hunter2hunter2")

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.ParseAccessToken(token)
		require.Error(t, err, "token=%q", token)
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	svc := newAuthService(t, "hunter2hunter2")
	past := time.Now().Add(-48 * time.Hour)
	svc.WithNow(func() time.Time { return past })

	result, err := svc.Login(context.Background(), "kasir", "hunter2hunter2")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsForeignSecret(t *testing.T) {
	svc := newAuthService(t, "hunter2hunter2")

	result, err := svc.Login(context.Background(), "kasir", "hunter2hunter2")
	require.NoError(t, err)

	hash, err := argon2id.CreateHash("hunter2hunter2", argon2id.DefaultParams)
	require.NoError(t, err)
	foreign, err := auth.NewService(auth.Config{
		OperatorName:   "kasir",
		PasswordHash:   hash,
		Secret:         "another-secret-at-least-32-chars!",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	_, err = foreign.ParseAccessToken(result.AccessToken)
	require.Error(t, err)
}

func TestRequireAuthMiddleware(t *testing.T) {
	svc := newAuthService(t, "hunter2hunter2")
	mw := auth.Middleware{Service: svc}

	var seenOperator string
	protected := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOperator, _ = common.Operator(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// No token.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	result, err := svc.Login(context.Background(), "kasir", "hunter2hunter2")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+result.AccessToken)
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "kasir", seenOperator)
}

func TestLoginHandler(t *testing.T) {
	svc := newAuthService(t, "hunter2hunter2")
	h := &auth.Handler{Service: svc}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"name":"kasir","password":"hunter2hunter2"}`))
	h.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.AccessToken)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"name":"kasir","password":"wrong"}`))
	h.Login(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
