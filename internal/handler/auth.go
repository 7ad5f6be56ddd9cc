package handler

import (
	"context"
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // cookie lifetimes and timeouts

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/account-auth/internal/middleware" // access cookie name and caller identity
	"github.com/iliyamo/account-auth/internal/model"      // domain errors and types
	"github.com/iliyamo/account-auth/internal/service"    // auth and account use cases
)

// RefreshCookie is the cookie the rotating refresh token lives in.  It is
// scoped to the refresh endpoint so browsers never send it elsewhere.
const (
	RefreshCookie     = "refresh_token"
	RefreshCookiePath = "/auth/refresh"
)

// Authenticator is the session half of the auth service.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	Refresh(ctx context.Context, token string) (service.RefreshResult, error)
	Logout(ctx context.Context, token string) error
}

// Accounts is the user management half of the auth service.
type Accounts interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (model.User, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id string, in service.UpdateUserInput) (model.User, error)
	DeleteUserByEmail(ctx context.Context, email string) error
}

// CookieConfig controls the session cookies.
type CookieConfig struct {
	Secure       bool          // set in production
	AccessMaxAge time.Duration // lifetime of the access_token cookie
	RefreshTTL   time.Duration // lifetime of the refresh_token cookie
}

// AuthHandler bundles dependencies for the /auth endpoints.
type AuthHandler struct {
	Auth    Authenticator
	Users   Accounts
	Cookies CookieConfig
	Timeout time.Duration
}

func NewAuthHandler(auth Authenticator, users Accounts, cookies CookieConfig, timeout time.Duration) *AuthHandler {
	return &AuthHandler{Auth: auth, Users: users, Cookies: cookies, Timeout: timeout}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type signUpReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type adminCreateReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // USER | ADMIN, defaults to USER
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResp struct {
	AccessToken string    `json:"accessToken"`
	UserID      string    `json:"userId,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
type createdUserResp struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
type meResp struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// Login: verify credentials and open a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return model.InvalidInput("invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return model.InvalidInput("email and password are required")
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setSessionCookies(c, res.AccessToken, res.RefreshToken)
	return c.JSON(http.StatusOK, success(sessionResp{
		AccessToken: res.AccessToken,
		UserID:      res.UserID,
		ExpiresAt:   res.ExpiresAt,
	}))
}

// SignUp: register a USER account and log it in.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return model.InvalidInput("invalid body")
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	u, err := h.Users.CreateUser(ctx, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.RoleUser,
	})
	if err != nil {
		return err
	}
	res, err := h.Auth.Login(ctx, u.Email, req.Password)
	if err != nil {
		return err
	}
	h.setSessionCookies(c, res.AccessToken, res.RefreshToken)
	return c.JSON(http.StatusCreated, success(sessionResp{
		AccessToken: res.AccessToken,
		UserID:      res.UserID,
		ExpiresAt:   res.ExpiresAt,
	}))
}

// Refresh: rotate the refresh token.  The cookie wins over the body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := refreshTokenFrom(c)
	if raw == "" {
		return model.InvalidToken("Refresh token not provided")
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	h.setSessionCookies(c, res.AccessToken, res.RefreshToken)
	return c.JSON(http.StatusOK, success(sessionResp{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt,
	}))
}

// Logout: revoke the presented refresh token and clear both cookies.
// Runs behind JWTAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, refreshTokenFrom(c)); err != nil {
		return err
	}
	h.clearSessionCookies(c)
	return c.JSON(http.StatusOK, success(echo.Map{"message": "Successfully logged out"}))
}

// AdminCreateUser: create an account with an explicit role.  ADMIN only.
func (h *AuthHandler) AdminCreateUser(c echo.Context) error {
	var req adminCreateReq
	if err := c.Bind(&req); err != nil {
		return model.InvalidInput("invalid body")
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return model.ErrUnknownRole
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	u, err := h.Users.CreateUser(ctx, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createdUserResp{ID: u.ID, Name: u.Name, Email: u.Email})
}

// Me: echo the caller's access token claims.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, success(meResp{
		UserID: middleware.UserID(c),
		Email:  middleware.Email(c),
		Roles:  middleware.Roles(c),
	}))
}

// refreshTokenFrom reads the refresh_token cookie, falling back to a JSON
// body field for clients that do not keep cookies.
func refreshTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var req refreshReq
	_ = c.Bind(&req) // an empty or non-JSON body simply yields no token
	return strings.TrimSpace(req.RefreshToken)
}

func (h *AuthHandler) setSessionCookies(c echo.Context, access, refresh string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    access,
		Path:     "/",
		MaxAge:   int(h.Cookies.AccessMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    refresh,
		Path:     RefreshCookiePath,
		MaxAge:   int(h.Cookies.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	for _, ck := range []struct{ name, path string }{
		{RefreshCookie, RefreshCookiePath},
		{middleware.AccessCookie, "/"},
	} {
		c.SetCookie(&http.Cookie{
			Name:     ck.name,
			Value:    "",
			Path:     ck.path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.Cookies.Secure,
		})
	}
}
