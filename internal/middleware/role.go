package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns a middleware enforcing that the authenticated user
// holds one of the listed roles.  Roles correspond to the values stored
// in the JWT's "role" claim; JWTAuth must run first so the claim is in
// the context.  Requests with a missing or disallowed role get 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "error": "forbidden",
				})
			}
			return next(c)
		}
	}
}
