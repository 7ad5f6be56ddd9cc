package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role names a user's authorization level.  The set is closed; the
// database enforces the same values with a CHECK constraint.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole normalizes s into a Role.  An empty string yields RoleUser.
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return RoleUser, true
	}
	r := Role(s)
	return r, r.Valid()
}

// User represents an account record as stored in the `users` table.
// Values are treated as immutable: updates build a new User through
// With instead of mutating a shared value.
//
// Fields:
//
//	ID           – UUID, fixed at creation.
//	Name         – unique display name.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash, never the plaintext.
//	Role         – USER or ADMIN.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// NewUserParams carries the inputs for NewUser.
type NewUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// NewUser validates p and returns a fresh User with a random ID.
func NewUser(p NewUserParams, now time.Time) (User, error) {
	name := strings.TrimSpace(p.Name)
	email := NormalizeEmail(p.Email)
	if name == "" || email == "" || p.PasswordHash == "" {
		return User{}, ErrMissingUserFields
	}
	role := p.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return User{}, ErrUnknownRole
	}
	now = now.UTC()
	return User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: p.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserChanges lists the fields an update may replace.  Empty values
// leave the corresponding field untouched.
type UserChanges struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// Empty reports whether no field would change.
func (c UserChanges) Empty() bool {
	return c.Name == "" && c.Email == "" && c.PasswordHash == "" && c.Role == ""
}

// With returns a copy of u with the non-empty fields of c applied.
func (u User) With(c UserChanges, now time.Time) (User, error) {
	next := u
	if name := strings.TrimSpace(c.Name); name != "" {
		next.Name = name
	}
	if email := NormalizeEmail(c.Email); email != "" {
		next.Email = email
	}
	if c.PasswordHash != "" {
		next.PasswordHash = c.PasswordHash
	}
	if c.Role != "" {
		if !c.Role.Valid() {
			return User{}, ErrUnknownRole
		}
		next.Role = c.Role
	}
	if !c.Empty() {
		next.UpdatedAt = now.UTC()
	}
	return next, nil
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
