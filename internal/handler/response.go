package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/model"
)

// defaultTimeout bounds store calls when no timeout is configured.
const defaultTimeout = 5 * time.Second

// envelope wraps successful auth responses.
type envelope struct {
	Success bool `json:"success"`
	Value   any  `json:"value"`
}

func success(v any) envelope { return envelope{Success: true, Value: v} }

// userView is the public form of a user; the password hash never leaves
// the service.
type userView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func viewOf(u model.User) userView {
	return userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// requestContext derives the per-request deadline for store calls.
func requestContext(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), timeout)
}
