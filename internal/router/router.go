package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/account-auth/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/account-auth/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/account-auth/internal/model"
)

// New builds an Echo instance with the shared middleware stack and the
// JSON error handler installed.  Routes are added with the Register
// functions below.
func New(log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewErrorHandler(log)

	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.ErrorContext(c.Request().Context(), "panic recovered", "err", err, "stack", string(stack))
			return err
		},
	}))
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	return e
}

// RegisterRoutes registers the operational routes that never require
// authentication: liveness, readiness and, when metrics is non-nil, the
// Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, ready echo.HandlerFunc, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	if ready != nil {
		e.GET("/readyz", ready)
	}
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the /auth routes.  Login, sign-up and refresh
// are open; logout and me need a valid access token; creating users with
// an explicit role needs ADMIN.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, v middleware.AccessTokenVerifier) {
	g := e.Group("/auth")
	g.POST("/login", a.Login)
	g.POST("/sign-up", a.SignUp)
	g.POST("/refresh", a.Refresh)

	authn := middleware.JWTAuth(v)
	g.POST("/logout", a.Logout, authn)
	g.GET("/me", a.Me, authn)
	g.POST("/users", a.AdminCreateUser, authn, middleware.RequireRole(string(model.RoleAdmin)))
}

// RegisterUsers registers the /users routes.  All of them need an access
// token; listing, creating and deleting accounts need ADMIN.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, v middleware.AccessTokenVerifier) {
	g := e.Group("/users", middleware.JWTAuth(v))
	admin := middleware.RequireRole(string(model.RoleAdmin))

	g.GET("", u.List, admin)
	g.POST("", u.Create, admin)
	g.DELETE("", u.Delete, admin)
	g.GET("/:id", u.Get)
	g.POST("/:id", u.Update)
}
