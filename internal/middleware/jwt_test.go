package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/utils"
)

const testSecret = "test-secret"

func runJWT(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen echo.Context
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		seen = c
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func TestJWTAuthFromCookie(t *testing.T) {
	tok, err := utils.NewSessionToken(testSecret, 9, "user", 7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok.Token})

	rec, seen := runJWT(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.EqualValues(t, 9, seen.Get("user_id"))
	assert.Equal(t, "user", seen.Get("role"))
}

func TestJWTAuthFromBearerHeader(t *testing.T) {
	tok, err := utils.NewSessionToken(testSecret, 4, "admin", 7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)

	rec, seen := runJWT(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", seen.Get("role"))
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, seen := runJWT(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewSessionToken("other-secret", 9, "user", 7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok.Token})

	rec, seen := runJWT(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("admin")

	// allowed role passes through
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("role", "admin")
	require.NoError(t, mw(next)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// wrong role is rejected
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("role", "user")
	require.NoError(t, mw(next)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// missing role is rejected
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	require.NoError(t, mw(next)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
