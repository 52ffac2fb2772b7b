package handler

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/middleware"
	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
	"github.com/rewear-app/rewear-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.  Sessions are a
// single JWT stored in an HTTP-only cookie; there is no refresh flow.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Txs   *repository.TransactionRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TransactionRepo) *AuthHandler {
	if u == nil || t == nil {
		panic("nil repository passed to NewAuthHandler")
	}
	return &AuthHandler{Cfg: cfg, Users: u, Txs: t}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type adminLoginReq struct {
	Passkey string `json:"passkey"`
}

// setSessionCookie writes the session JWT as an HTTP-only cookie.  Secure
// is left off outside production so local HTTP development works.
func (h *AuthHandler) setSessionCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.Cfg.Env, "prod"),
		SameSite: http.SameSiteLaxMode,
	})
}

// Register handles POST /api/auth/register.  It creates a user account
// with the starting points balance, issues a session token and sets the
// session cookie.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "name, email and password are required")
	}
	if len(req.Password) < 6 {
		return fail(c, http.StatusBadRequest, "password must be at least 6 characters")
	}
	if !strings.Contains(req.Email, "@") {
		return fail(c, http.StatusBadRequest, "invalid email address")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password,
		model.RoleUser, model.StartingPoints, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return fail(c, http.StatusConflict, "email already registered")
		}
		return failServer(c)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return failServer(c)
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, uid, u.Role, h.Cfg.TokenTTLDays)
	if err != nil {
		return failServer(c)
	}
	h.setSessionCookie(c, tok.Token, tok.Exp)
	return okMsg(c, http.StatusCreated, "account created", echo.Map{"user": newUserView(u)})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return failServer(c)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "account is deactivated")
	}
	_ = h.Users.TouchLastActive(ctx, u.ID)

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.TokenTTLDays)
	if err != nil {
		return failServer(c)
	}
	h.setSessionCookie(c, tok.Token, tok.Exp)
	return okMsg(c, http.StatusOK, "logged in", echo.Map{"user": newUserView(u)})
}

// AdminLogin handles POST /api/auth/admin-login.  The shared passkey is
// compared in constant time and grants a session for the first admin
// account, creating a default one on first use.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Passkey == "" {
		return fail(c, http.StatusBadRequest, "passkey is required")
	}
	if subtle.ConstantTimeCompare([]byte(req.Passkey), []byte(h.Cfg.AdminPasskey)) != 1 {
		return fail(c, http.StatusUnauthorized, "invalid passkey")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FirstAdmin(ctx)
	if err == sql.ErrNoRows {
		// First admin login bootstraps the account.  The password is
		// never used: admin sessions only come through the passkey.
		uid, cerr := h.Users.Create(ctx, model.DefaultAdminName, model.DefaultAdminEmail,
			"admin123", model.RoleAdmin, model.DefaultAdminPoints, h.Cfg.BcryptCost)
		if cerr != nil {
			return failServer(c)
		}
		u, err = h.Users.GetByID(ctx, uid)
	}
	if err != nil {
		return failServer(c)
	}
	if !u.IsActive {
		return fail(c, http.StatusForbidden, "account is deactivated")
	}
	_ = h.Users.TouchLastActive(ctx, u.ID)

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.TokenTTLDays)
	if err != nil {
		return failServer(c)
	}
	h.setSessionCookie(c, tok.Token, tok.Exp)
	return okMsg(c, http.StatusOK, "logged in", echo.Map{"user": newUserView(u)})
}

// Me handles GET /api/auth/me.  Returns the current user together with
// recent ledger activity so the dashboard can render from one call.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusUnauthorized, "account no longer exists")
		}
		return failServer(c)
	}
	recent, err := h.Txs.RecentByUser(ctx, userID, 5)
	if err != nil {
		return failServer(c)
	}
	stats, err := h.Txs.UserStats(ctx, userID)
	if err != nil {
		return failServer(c)
	}
	return ok(c, http.StatusOK, echo.Map{
		"user":               newUserView(u),
		"recentTransactions": newTxViews(recent),
		"transactionStats":   stats,
	})
}

// Logout handles POST /api/auth/logout by expiring the session cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.Cfg.Env, "prod"),
		SameSite: http.SameSiteLaxMode,
	})
	return okMsg(c, http.StatusOK, "logged out", nil)
}
