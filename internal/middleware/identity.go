package middleware

// identity.go holds the context keys JWTAuth fills in and accessors for
// handlers and downstream middleware.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxRoles  = "roles"
)

// UserID returns the authenticated subject, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// Email returns the authenticated email claim.
func Email(c echo.Context) string {
	s, _ := c.Get(ctxEmail).(string)
	return s
}

// Roles returns the authenticated role claims, or nil.
func Roles(c echo.Context) []string {
	r, _ := c.Get(ctxRoles).([]string)
	return r
}
