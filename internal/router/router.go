// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rewear-app/rewear-api/internal/handler"
	"github.com/rewear-app/rewear-api/internal/middleware"
	"github.com/rewear-app/rewear-api/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Register, login
// and the admin passkey login issue the session cookie; /me requires it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/admin-login", a.AdminLogin)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated catalog endpoints.  The
// optional extra middleware (response caching) applies only here, where
// responses do not depend on the caller.
func RegisterPublic(e *echo.Echo, items *handler.ItemHandler, mw ...echo.MiddlewareFunc) {
	e.GET("/api/items", items.List, mw...)
	e.GET("/api/items/browse", items.Browse, mw...)
	e.GET("/api/items/:id", items.Get, mw...)
}

// RegisterProtected registers the endpoints available to any
// authenticated account: listing management, redemption, swap requests,
// credits and profiles.
func RegisterProtected(e *echo.Echo, jwtSecret string, items *handler.ItemHandler, swaps *handler.SwapHandler, credits *handler.CreditHandler, users *handler.UserHandler) {
	auth := e.Group("/api")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleModerator, model.RoleAdmin))

	auth.POST("/items", items.Create)
	auth.PUT("/items/:id", items.Update)
	auth.PATCH("/items/:id", items.Patch)
	auth.DELETE("/items/:id", items.Delete)
	auth.POST("/items/redeem", items.Redeem)

	auth.GET("/swap-requests", swaps.List)
	auth.POST("/swap-requests", swaps.Create)
	auth.GET("/swap-requests/:id", swaps.Get)
	auth.PUT("/swap-requests/:id", swaps.Act)
	auth.DELETE("/swap-requests/:id", swaps.Delete)

	auth.GET("/credits/purchase", credits.Packages)
	auth.POST("/credits/purchase", credits.Purchase)
	auth.GET("/credits/transactions", credits.Transactions)

	auth.GET("/users/profile", users.Profile)
	auth.PUT("/users/profile", users.UpdateProfile)
	auth.GET("/users/:id", users.Get)
}

// RegisterAdmin registers the moderation endpoints behind the admin role.
func RegisterAdmin(e *echo.Echo, jwtSecret string, admin *handler.AdminHandler, users *handler.UserHandler) {
	g := e.Group("/api")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.GET("/users", users.List)
	g.POST("/users", users.Create)
	g.GET("/admin/stats", admin.Stats)
	g.GET("/admin/items", admin.ListItems)
	g.PATCH("/admin/users/:id", admin.UpdateUser)
}
