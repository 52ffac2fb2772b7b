package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/middleware"
	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
	"github.com/rewear-app/rewear-api/internal/utils"
)

func newAuthHandlerForTest(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	cfg := config.Config{
		Env: "test", JWTSecret: "test-secret", TokenTTLDays: 7,
		BcryptCost: 4, AdminPasskey: "sesame",
	}
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTransactionRepo(db))
	return h, mock, func() { db.Close() }
}

func sessionCookie(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			return ck
		}
	}
	return nil
}

func TestRegisterValidation(t *testing.T) {
	h, _, done := newAuthHandlerForTest(t)
	defer done()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing fields", `{"email":"a@b.c"}`, "required"},
		{"short password", `{"name":"A","email":"a@b.c","password":"123"}`, "at least 6"},
		{"bad email", `{"name":"A","email":"nope","password":"123456"}`, "invalid email"},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonCtx(e, http.MethodPost, "/api/auth/register", tc.body)
			require.NoError(t, h.Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h, mock, done := newAuthHandlerForTest(t)
	defer done()

	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("maya@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			7, "Maya", "maya@example.com", hash, "", "", 100, model.RoleUser,
			"", "", "", 0, 0, 0, 0.0, 0, true, now, now, now))
	mock.ExpectExec("UPDATE users SET last_active=").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/login",
		`{"email":"Maya@Example.com","password":"hunter22"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	ck := sessionCookie(rec)
	require.NotNil(t, ck, "session cookie must be set")
	assert.True(t, ck.HttpOnly)
	assert.NotEmpty(t, ck.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	h, mock, done := newAuthHandlerForTest(t)
	defer done()

	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			7, "Maya", "maya@example.com", hash, "", "", 100, model.RoleUser,
			"", "", "", 0, 0, 0, 0.0, 0, true, now, now, now))

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/login",
		`{"email":"maya@example.com","password":"battery-staple"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestAdminLoginWrongPasskey(t *testing.T) {
	h, _, done := newAuthHandlerForTest(t)
	defer done()

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/admin-login", `{"passkey":"111111"}`)
	require.NoError(t, h.AdminLogin(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginBootstrapsDefaultAdmin(t *testing.T) {
	h, mock, done := newAuthHandlerForTest(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE role=").
		WithArgs(model.RoleAdmin).
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectExec("INSERT INTO users").
		WithArgs(model.DefaultAdminName, model.DefaultAdminEmail, sqlmock.AnyArg(),
			model.RoleAdmin, int64(model.DefaultAdminPoints)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			1, model.DefaultAdminName, model.DefaultAdminEmail, "$2a$04$hash", "", "",
			model.DefaultAdminPoints, model.RoleAdmin,
			"", "", "", 0, 0, 0, 0.0, 0, true, now, now, now))
	mock.ExpectExec("UPDATE users SET last_active=").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/admin-login", `{"passkey":"sesame"}`)
	require.NoError(t, h.AdminLogin(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.DefaultAdminEmail)
	require.NotNil(t, sessionCookie(rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminLoginIssuesAdminSession(t *testing.T) {
	h, mock, done := newAuthHandlerForTest(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE role=").
		WithArgs(model.RoleAdmin).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			1, "Root", "root@example.com", "$2a$04$hash", "", "", 0, model.RoleAdmin,
			"", "", "", 0, 0, 0, 0.0, 0, true, now, now, now))
	mock.ExpectExec("UPDATE users SET last_active=").
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := echo.New()
	c, rec := jsonCtx(e, http.MethodPost, "/api/auth/admin-login", `{"passkey":"sesame"}`)
	require.NoError(t, h.AdminLogin(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, sessionCookie(rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
