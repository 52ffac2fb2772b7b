package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user's ID from the request context.
// The JWT middleware stores the raw claim value, whose Go type depends on
// how the JSON number decoded, so a type switch covers all cases.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentRole returns the authenticated user's role, or "" when absent.
func currentRole(c echo.Context) string {
	if s, ok := c.Get("role").(string); ok {
		return s
	}
	return ""
}

// parseID parses a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// normPage mirrors the repository's pagination clamping so the envelope
// echoes the values actually used.
func normPage(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = def
	}
	return page, limit
}

// ok writes the success envelope with data.
func ok(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, echo.Map{"success": true, "data": data})
}

// okMsg writes the success envelope with a message and data.
func okMsg(c echo.Context, code int, msg string, data interface{}) error {
	return c.JSON(code, echo.Map{"success": true, "message": msg, "data": data})
}

// fail writes the error envelope.
func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"success": false, "error": msg})
}

// failServer is the catch-all 500 response.
func failServer(c echo.Context) error {
	return fail(c, http.StatusInternalServerError, "internal server error")
}
