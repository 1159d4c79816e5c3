package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-comissoes/internal/common"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Secret:         "unit-test-secret",
		Issuer:         "backend-comissoes",
		Audience:       "comissoes-dashboard",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService(Config{})
	require.Error(t, err)
}

func TestSignAndParseRoundTrip(t *testing.T) {
	svc := newTestService(t)

	token, expiry, err := svc.SignAccessToken("user-1")
	require.NoError(t, err)
	require.True(t, expiry.After(time.Now()))

	subject, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", subject)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t)
	svc.WithNow(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	token, _, err := svc.SignAccessToken("user-1")
	require.NoError(t, err)

	svc.WithNow(time.Now)
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	other, err := NewService(Config{Secret: "unit-test-secret", Issuer: "someone-else"})
	require.NoError(t, err)
	token, _, err := other.SignAccessToken("user-1")
	require.NoError(t, err)

	svc := newTestService(t)
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	other, err := NewService(Config{Secret: "another-secret", Issuer: "backend-comissoes", Audience: "comissoes-dashboard"})
	require.NoError(t, err)
	token, _, err := other.SignAccessToken("user-1")
	require.NoError(t, err)

	svc := newTestService(t)
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ParseAccessToken("not.a.token")
	require.Error(t, err)
}

func TestRequireAuthMiddleware(t *testing.T) {
	svc := newTestService(t)
	mw := Middleware{Service: svc}

	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := common.UserID(r.Context()); ok {
			gotSubject = id
		}
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/skus", nil)
	rec := httptest.NewRecorder()
	mw.RequireAuth(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := svc.SignAccessToken("user-42")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/v1/skus", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	mw.RequireAuth(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "user-42", gotSubject)
}

func TestRequireAuthReadsCookie(t *testing.T) {
	svc := newTestService(t)
	mw := Middleware{Service: svc, AccessCookie: "access_token"}
	token, _, err := svc.SignAccessToken("user-7")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/skus", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()
	mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
