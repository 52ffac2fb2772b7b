package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rewear-app/rewear-api/internal/config"
	"github.com/rewear-app/rewear-api/internal/model"
	"github.com/rewear-app/rewear-api/internal/repository"
)

// UserHandler serves profile endpoints and the admin user directory.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Items *repository.ItemRepo
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo, items *repository.ItemRepo) *UserHandler {
	if users == nil || items == nil {
		panic("nil repository passed to NewUserHandler")
	}
	return &UserHandler{Cfg: cfg, Users: users, Items: items}
}

// Profile handles GET /api/users/profile.
func (h *UserHandler) Profile(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	u, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return failServer(c)
	}
	return ok(c, http.StatusOK, echo.Map{"user": newUserView(u)})
}

type profileReq struct {
	Name     string         `json:"name"`
	Avatar   string         `json:"avatar"`
	Bio      string         `json:"bio"`
	Location model.Location `json:"location"`
}

// UpdateProfile handles PUT /api/users/profile.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return fail(c, http.StatusBadRequest, "name is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, userID, req.Name, req.Avatar, req.Bio, req.Location); err != nil {
		return failServer(c)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return failServer(c)
	}
	return okMsg(c, http.StatusOK, "profile updated", echo.Map{"user": newUserView(u)})
}

// Get handles GET /api/users/:id: the public slice of a profile together
// with the user's available listings.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user id")
	}
	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fail(c, http.StatusNotFound, "user not found")
		}
		return failServer(c)
	}
	items, _, err := h.Items.List(ctx, repository.ItemFilter{
		Status: model.ItemStatusAvailable,
		UserID: id,
		Limit:  12,
	})
	if err != nil {
		return failServer(c)
	}
	return ok(c, http.StatusOK, echo.Map{
		"user":  newPublicUserView(u),
		"items": newItemDetailViews(items),
	})
}

// List handles GET /api/users (admin): the user directory with filters.
func (h *UserHandler) List(c echo.Context) error {
	f := repository.UserFilter{
		Role:     c.QueryParam("role"),
		Search:   c.QueryParam("search"),
		SortBy:   c.QueryParam("sort"),
		SortDesc: c.QueryParam("order") != "asc",
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
	}
	if v := c.QueryParam("isActive"); v != "" {
		active := v == "true"
		f.IsActive = &active
	}
	users, total, err := h.Users.List(c.Request().Context(), f)
	if err != nil {
		return failServer(c)
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	page, limit := normPage(f.Page, f.Limit, 20)
	return ok(c, http.StatusOK, echo.Map{
		"users":      views,
		"pagination": newPagination(page, limit, total),
	})
}

type adminCreateUserReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Points   *int64 `json:"points"`
}

// Create handles POST /api/users (admin): provision an account with an
// explicit role and starting balance.
func (h *UserHandler) Create(c echo.Context) error {
	var req adminCreateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "name, email and password are required")
	}
	role := req.Role
	switch role {
	case model.RoleUser, model.RoleModerator, model.RoleAdmin:
	case "":
		role = model.RoleUser
	default:
		return fail(c, http.StatusBadRequest, "invalid role")
	}
	points := int64(model.StartingPoints)
	if req.Points != nil {
		if *req.Points < 0 {
			return fail(c, http.StatusBadRequest, "points cannot be negative")
		}
		points = *req.Points
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, points, h.Cfg.BcryptCost)
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
	return okMsg(c, http.StatusCreated, "user created", echo.Map{"user": newUserView(u)})
}
