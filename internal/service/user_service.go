package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
	"github.com/iliyamo/account-auth/internal/repository"
)

// CreateUserInput is the data needed to register an account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role // empty means USER
}

// UpdateUserInput lists replacement values; empty fields are kept.  A new
// Password must be repeated in PasswordConfirmation.
type UpdateUserInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
	Role                 model.Role
}

// UserService manages accounts.
type UserService struct {
	users UserStore
	creds CredentialVerifier
	options
}

// NewUserService wires a UserService.
func NewUserService(users UserStore, creds CredentialVerifier, opts ...Option) *UserService {
	if users == nil || creds == nil {
		panic("nil dependency passed to NewUserService")
	}
	return &UserService{users: users, creds: creds, options: buildOptions(opts)}
}

// CreateUser registers a new account.  Email is checked before name, so a
// request conflicting on both reports the email.  Nothing is written when
// either is taken.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (model.User, error) {
	u, err := s.createUser(ctx, in)
	s.metrics.RecordSignUp(outcome(err))
	return u, err
}

func (s *UserService) createUser(ctx context.Context, in CreateUserInput) (model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := model.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return model.User{}, model.ErrMissingUserFields
	}
	if in.Role != "" && !in.Role.Valid() {
		return model.User{}, model.ErrUnknownRole
	}

	if err := s.ensureFree(ctx, s.users.FindByEmail, email, ""); err != nil {
		return model.User{}, err
	}
	if err := s.ensureFree(ctx, s.users.FindByName, name, ""); err != nil {
		return model.User{}, err
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := model.NewUser(model.NewUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
	}, s.clock())
	if err != nil {
		return model.User{}, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			return model.User{}, model.UserAlreadyExists(email)
		}
		return model.User{}, fmt.Errorf("save user: %w", err)
	}

	s.publish(ctx, queue.EventUserRegistered, u.ID, u.Email)
	return u, nil
}

// GetUser returns the user with id.
func (s *UserService) GetUser(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, model.UserNotFound(id)
		}
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// ListUsers returns every user ordered by creation.
func (s *UserService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser replaces the non-empty fields of in on user id and returns
// the new value.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (model.User, error) {
	current, err := s.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	changes := model.UserChanges{Name: in.Name, Email: in.Email, Role: in.Role}
	if in.Password != "" {
		if in.Password != in.PasswordConfirmation {
			return model.User{}, model.ErrPasswordsDontMatch
		}
		hash, err := s.creds.Hash(in.Password)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		changes.PasswordHash = hash
	}

	if email := model.NormalizeEmail(in.Email); email != "" && email != current.Email {
		if err := s.ensureFree(ctx, s.users.FindByEmail, email, current.ID); err != nil {
			return model.User{}, err
		}
	}
	if name := strings.TrimSpace(in.Name); name != "" && name != current.Name {
		if err := s.ensureFree(ctx, s.users.FindByName, name, current.ID); err != nil {
			return model.User{}, err
		}
	}

	next, err := current.With(changes, s.clock())
	if err != nil {
		return model.User{}, err
	}
	if changes.Empty() {
		return next, nil
	}
	if err := s.users.Update(ctx, next); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, model.UserAlreadyExists(next.Email)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, model.UserNotFound(id)
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	return next, nil
}

// DeleteUserByEmail removes an account.  Its refresh tokens are left in
// place; the next refresh attempt finds the user missing and revokes them.
func (s *UserService) DeleteUserByEmail(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UserWithEmailNotFound(email)
		}
		return fmt.Errorf("find user by email: %w", err)
	}
	if err := s.users.DeleteByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UserWithEmailNotFound(email)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.publish(ctx, queue.EventUserDeleted, u.ID, u.Email)
	return nil
}

// ensureFree fails with UserAlreadyExists when find locates a user other
// than selfID under key.
func (s *UserService) ensureFree(ctx context.Context, find func(context.Context, string) (model.User, error), key, selfID string) error {
	existing, err := find(ctx, key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check %q: %w", key, err)
	case existing.ID == selfID:
		return nil
	default:
		return model.UserAlreadyExists(key)
	}
}
