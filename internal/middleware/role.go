package middleware // middleware provides shared request processing for handlers

import (
	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/account-auth/internal/model"
)

// Authorize decides whether a caller holding have may run an operation
// that requires one of required.  No required roles means no restriction.
// It is pure: no I/O, no state.
func Authorize(required, have []string) error {
	if len(required) == 0 {
		return nil
	}
	if len(have) == 0 {
		return model.ErrForbidden
	}
	for _, r := range required {
		for _, h := range have {
			if r == h {
				return nil
			}
		}
	}
	return model.ErrForbidden
}

// RequireRole returns a middleware that lets the request through only when
// the caller holds at least one of roles.  It must run after JWTAuth, which
// stores the caller's role claims in the context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	required := append([]string(nil), roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Authorize(required, Roles(c)); err != nil {
				return err
			}
			return next(c)
		}
	}
}
