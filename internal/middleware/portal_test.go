package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portalTestSecret = "portal-secret"

func portalEcho() *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, AccountIDFromContext(c))
	}, PortalAuth(portalTestSecret))
	return e
}

func signPortalToken(t *testing.T, secret, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func doPortal(e *echo.Echo, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPortalAuth_ValidTokenSetsAccount(t *testing.T) {
	e := portalEcho()
	token := signPortalToken(t, portalTestSecret, "acct-42", time.Now().Add(time.Hour))

	rec := doPortal(e, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acct-42", rec.Body.String())
}

func TestPortalAuth_MissingHeader(t *testing.T) {
	rec := doPortal(portalEcho(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPortalAuth_WrongSigningKey(t *testing.T) {
	e := portalEcho()
	token := signPortalToken(t, "other-secret", "acct-42", time.Now().Add(time.Hour))

	rec := doPortal(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPortalAuth_ExpiredToken(t *testing.T) {
	e := portalEcho()
	token := signPortalToken(t, portalTestSecret, "acct-42", time.Now().Add(-time.Minute))

	rec := doPortal(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPortalAuth_MissingSubject(t *testing.T) {
	e := portalEcho()
	token := signPortalToken(t, portalTestSecret, "", time.Now().Add(time.Hour))

	rec := doPortal(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPortalAuth_RejectsUnexpectedAlgorithm(t *testing.T) {
	e := portalEcho()

	// alg=none style tokens must never pass
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "acct-42"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	rec := doPortal(e, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
