package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated subject, or "anon" on public routes.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// Role returns the authenticated role, or "" when there is none.
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}
