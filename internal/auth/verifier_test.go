package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/common"
)

func newTestVerifier(t *testing.T, now time.Time) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{
		Secret:    "super-secret-key",
		Issuer:    "printshop-identity",
		Audience:  "printshop-api",
		ClockSkew: time.Second,
	})
	require.NoError(t, err)
	v.WithNow(func() time.Time { return now })
	return v
}

func TestVerifierRoundTrip(t *testing.T) {
	v := newTestVerifier(t, time.Now())
	token, err := v.Issue("user-1", []string{RoleAdmin, "broker"}, time.Minute)
	require.NoError(t, err)

	identity, err := v.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
	require.True(t, identity.HasRole(RoleAdmin))
	require.True(t, identity.HasRole("broker"))
	require.False(t, identity.HasRole("owner"))
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-time.Hour)
	token, err := newTestVerifier(t, issuedAt).Issue("user-1", nil, time.Minute)
	require.NoError(t, err)

	_, err = newTestVerifier(t, time.Now()).ParseAccessToken(token)
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestVerifierRejectsWrongIssuerAndAudience(t *testing.T) {
	now := time.Now()
	other, err := NewVerifier(VerifierConfig{Secret: "super-secret-key", Issuer: "someone-else", Audience: "printshop-api"})
	require.NoError(t, err)
	other.WithNow(func() time.Time { return now })
	token, err := other.Issue("user-1", nil, time.Minute)
	require.NoError(t, err)
	_, err = newTestVerifier(t, now).ParseAccessToken(token)
	require.Error(t, err)

	other, err = NewVerifier(VerifierConfig{Secret: "super-secret-key", Issuer: "printshop-identity", Audience: "admin-ui"})
	require.NoError(t, err)
	token, err = other.Issue("user-1", nil, time.Minute)
	require.NoError(t, err)
	_, err = newTestVerifier(t, now).ParseAccessToken(token)
	require.Error(t, err)
}

func TestVerifierRejectsAlgorithmMismatch(t *testing.T) {
	now := time.Now()
	v := newTestVerifier(t, now)
	built, err := jwt.NewBuilder().
		Subject("user-1").
		Issuer(v.issuer).
		Audience([]string{v.audience}).
		IssuedAt(now).
		Expiration(now.Add(time.Minute)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, v.secret))
	require.NoError(t, err)

	_, err = v.ParseAccessToken(string(signed))
	require.Error(t, err)
}

func TestVerifierRejectsWrongSecretAndGarbage(t *testing.T) {
	now := time.Now()
	forger, err := NewVerifier(VerifierConfig{Secret: "not-the-secret", Issuer: "printshop-identity", Audience: "printshop-api"})
	require.NoError(t, err)
	token, err := forger.Issue("user-1", []string{RoleAdmin}, time.Minute)
	require.NoError(t, err)

	v := newTestVerifier(t, now)
	_, err = v.ParseAccessToken(token)
	require.Error(t, err)
	_, err = v.ParseAccessToken("not.a.jwt")
	require.Error(t, err)
	_, err = v.ParseAccessToken("  ")
	require.Error(t, err)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier(VerifierConfig{Secret: " "})
	require.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v := newTestVerifier(t, time.Now())
	mw := Middleware{Verifier: v}
	adminToken, err := v.Issue("admin-1", []string{RoleAdmin}, time.Minute)
	require.NoError(t, err)
	userToken, err := v.Issue("user-1", nil, time.Minute)
	require.NoError(t, err)

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := common.UserID(r.Context())
		_, _ = w.Write([]byte(id))
	})

	serve := func(h http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("authenticate is optional", func(t *testing.T) {
		rec := serve(mw.Authenticate(echo), "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Body.String())

		rec = serve(mw.Authenticate(echo), "garbage")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Body.String())

		rec = serve(mw.Authenticate(echo), userToken)
		require.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("require auth", func(t *testing.T) {
		require.Equal(t, http.StatusUnauthorized, serve(mw.RequireAuth(echo), "").Code)
		require.Equal(t, http.StatusUnauthorized, serve(mw.RequireAuth(echo), "garbage").Code)
		require.Equal(t, http.StatusOK, serve(mw.RequireAuth(echo), userToken).Code)
	})

	t.Run("require role", func(t *testing.T) {
		h := mw.RequireRole(RoleAdmin)(echo)
		require.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
		require.Equal(t, http.StatusForbidden, serve(h, userToken).Code)
		rec := serve(h, adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "admin-1", rec.Body.String())
	})

	t.Run("cookie token", func(t *testing.T) {
		cookieMW := Middleware{Verifier: v, AccessCookie: "access_token"}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: userToken})
		rec := httptest.NewRecorder()
		cookieMW.RequireAuth(echo).ServeHTTP(rec, req)
		require.Equal(t, "user-1", rec.Body.String())
	})
}
