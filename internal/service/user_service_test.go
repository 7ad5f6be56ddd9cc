package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
)

func newUserFixture(t *testing.T, seed ...model.User) (*UserService, *memUsers, *recordingPublisher) {
	t.Helper()
	users := newMemUsers(seed...)
	events := &recordingPublisher{}
	svc := NewUserService(users, plainHasher{},
		WithClock(func() time.Time { return testNow }), WithEvents(events))
	return svc, users, events
}

func seedUser(t *testing.T, name, email string, role model.Role) model.User {
	t.Helper()
	u, err := model.NewUser(model.NewUserParams{Name: name, Email: email, PasswordHash: "h:pw", Role: role}, testNow)
	require.NoError(t, err)
	return u
}

func TestCreateUser(t *testing.T) {
	svc, users, events := newUserFixture(t)

	u, err := svc.CreateUser(context.Background(), CreateUserInput{Name: " ada ", Email: "Ada@Example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "h:secret", u.PasswordHash)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, 1, users.count())
	assert.Equal(t, []string{queue.EventUserRegistered}, events.types())
}

func TestCreateUserConflicts(t *testing.T) {
	existing := seedUser(t, "ada", "ada@example.com", model.RoleUser)

	cases := []struct {
		name    string
		in      CreateUserInput
		message string
	}{
		{"email", CreateUserInput{Name: "other", Email: "ADA@example.com", Password: "x"}, "User 'ada@example.com' already exists"},
		{"name", CreateUserInput{Name: "ada", Email: "other@example.com", Password: "x"}, "User 'ada' already exists"},
		{"both reports email", CreateUserInput{Name: "ada", Email: "ada@example.com", Password: "x"}, "User 'ada@example.com' already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, users, events := newUserFixture(t, existing)
			_, err := svc.CreateUser(context.Background(), tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrUserAlreadyExists)
			assert.Equal(t, tc.message, err.Error())
			assert.Equal(t, 1, users.count())
			assert.Zero(t, users.saves)
			assert.Empty(t, events.types())
		})
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc, users, _ := newUserFixture(t)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{Name: "ada", Email: "", Password: "x"})
	assert.ErrorIs(t, err, model.ErrMissingUserFields)

	_, err = svc.CreateUser(context.Background(), CreateUserInput{Name: "ada", Email: "a@b.c", Password: "x", Role: "ROOT"})
	assert.ErrorIs(t, err, model.ErrUnknownRole)
	assert.Zero(t, users.count())
}

func TestGetUserNotFound(t *testing.T) {
	svc, _, _ := newUserFixture(t)

	_, err := svc.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
	assert.Equal(t, "User with identifier 'missing' not found", err.Error())
}

func TestListUsersOrdered(t *testing.T) {
	a := seedUser(t, "ada", "ada@example.com", model.RoleUser)
	b := seedUser(t, "bob", "bob@example.com", model.RoleAdmin)
	b.CreatedAt = a.CreatedAt.Add(time.Second)
	svc, _, _ := newUserFixture(t, b, a)

	got, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)
}

func TestUpdateUser(t *testing.T) {
	u := seedUser(t, "ada", "ada@example.com", model.RoleUser)
	other := seedUser(t, "bob", "bob@example.com", model.RoleUser)
	ctx := context.Background()

	t.Run("applies changes", func(t *testing.T) {
		svc, users, _ := newUserFixture(t, u, other)
		later := testNow.Add(time.Hour)
		svc.now = func() time.Time { return later }

		got, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Name: "lovelace", Password: "new", PasswordConfirmation: "new", Role: model.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, "lovelace", got.Name)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, "h:new", got.PasswordHash)
		assert.Equal(t, model.RoleAdmin, got.Role)
		assert.Equal(t, later, got.UpdatedAt)
		assert.Equal(t, u.CreatedAt, got.CreatedAt)

		stored, err := users.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, got, stored)
	})

	t.Run("password mismatch", func(t *testing.T) {
		svc, users, _ := newUserFixture(t, u, other)
		_, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Password: "a", PasswordConfirmation: "b"})
		assert.ErrorIs(t, err, model.ErrPasswordsDontMatch)
		stored, _ := users.FindByID(ctx, u.ID)
		assert.Equal(t, u, stored)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, _, _ := newUserFixture(t, u, other)
		_, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Email: "bob@example.com"})
		assert.ErrorIs(t, err, model.ErrUserAlreadyExists)
	})

	t.Run("own email is not a conflict", func(t *testing.T) {
		svc, _, _ := newUserFixture(t, u, other)
		got, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Email: "ADA@example.com"})
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)
	})

	t.Run("missing user", func(t *testing.T) {
		svc, _, _ := newUserFixture(t)
		_, err := svc.UpdateUser(ctx, "nope", UpdateUserInput{Name: "x"})
		assert.ErrorIs(t, err, model.ErrUserNotFound)
	})
}

func TestDeleteUserByEmail(t *testing.T) {
	u := seedUser(t, "ada", "ada@example.com", model.RoleUser)
	svc, users, events := newUserFixture(t, u)
	ctx := context.Background()

	require.NoError(t, svc.DeleteUserByEmail(ctx, "ADA@example.com"))
	assert.Zero(t, users.count())
	assert.Equal(t, []string{queue.EventUserDeleted}, events.types())

	err := svc.DeleteUserByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, model.ErrUserWithEmailNotFound)
	assert.Equal(t, "User with email 'ada@example.com' not found", err.Error())
}
