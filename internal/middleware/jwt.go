package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"strings" // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/account-auth/internal/model"
)

// AccessCookie is the cookie the access token is stored in.
const AccessCookie = "access_token"

// AccessTokenVerifier validates an access token and returns its claims.
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (model.AccessTokenPayload, error)
}

// JWTAuth returns an Echo middleware that validates the caller's access token
// and injects its subject, email and roles into the request context.  The
// token is read from a Bearer Authorization header, falling back to the
// access_token cookie.  Handlers read the values back via UserID, Email and
// Roles.
func JWTAuth(v AccessTokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return model.InvalidToken("Missing access token")
			}
			p, err := v.VerifyAccessToken(raw)
			if err != nil {
				return model.ErrInvalidToken
			}
			c.Set(ctxUserID, p.UserID)
			c.Set(ctxEmail, p.Email)
			c.Set(ctxRoles, p.Roles)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}
