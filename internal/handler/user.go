package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/account-auth/internal/middleware"
	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/service"
)

// UserHandler serves the /users endpoints.  Every route runs behind
// JWTAuth; list, create and delete additionally require ADMIN.
type UserHandler struct {
	Users   Accounts
	Timeout time.Duration
}

func NewUserHandler(users Accounts, timeout time.Duration) *UserHandler {
	return &UserHandler{Users: users, Timeout: timeout}
}

type createUserReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserReq struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"passwordConfirmation"`
	Role                 string `json:"role"`
}

type deleteUserReq struct {
	Email string `json:"email"`
}

// List returns every account.
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	users, err := h.Users.ListUsers(ctx)
	if err != nil {
		return err
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, viewOf(u))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one account by id.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	u, err := h.Users.GetUser(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewOf(u))
}

// Create registers an account with an explicit role.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
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
	return c.JSON(http.StatusCreated, viewOf(u))
}

// Update changes an account.  Callers may edit themselves; editing anyone
// else, or changing a role, takes ADMIN.
func (h *UserHandler) Update(c echo.Context) error {
	id := c.Param("id")
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return model.InvalidInput("invalid body")
	}

	var role model.Role
	if req.Role != "" {
		r, ok := model.ParseRole(req.Role)
		if !ok {
			return model.ErrUnknownRole
		}
		role = r
	}
	if id != middleware.UserID(c) || role != "" {
		if err := middleware.Authorize([]string{string(model.RoleAdmin)}, middleware.Roles(c)); err != nil {
			return err
		}
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	u, err := h.Users.UpdateUser(ctx, id, service.UpdateUserInput{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		Role:                 role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewOf(u))
}

// Delete removes the account with the email given in the body.
func (h *UserHandler) Delete(c echo.Context) error {
	var req deleteUserReq
	if err := c.Bind(&req); err != nil {
		return model.InvalidInput("invalid body")
	}
	if req.Email == "" {
		return model.InvalidInput("email is required")
	}

	ctx, cancel := requestContext(c, h.Timeout)
	defer cancel()

	if err := h.Users.DeleteUserByEmail(ctx, req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
