package service

import (
	"context"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
)

// CredentialVerifier hashes passwords and checks them against stored hashes.
type CredentialVerifier interface {
	Hash(plain string) (string, error)
	// Validate reports whether plain matches hash.  A mismatch is not an error.
	Validate(plain, hash string) bool
}

// TokenIssuer mints and verifies access and refresh tokens.
type TokenIssuer interface {
	GenerateAccessToken(payload model.AccessTokenPayload) (string, error)
	GenerateRefreshToken(userID string) (model.IssuedRefreshToken, error)
	VerifyRefreshToken(token string) (model.RefreshClaims, error)
}

// UserStore persists users.  Lookups return repository.ErrNotFound when
// nothing matches; writes return repository.ErrDuplicate on a unique
// constraint violation.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByName(ctx context.Context, name string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Save(ctx context.Context, u model.User) error
	Update(ctx context.Context, u model.User) error
	DeleteByEmail(ctx context.Context, email string) error
}

// RefreshTokenStore persists refresh-token records keyed by hash.
type RefreshTokenStore interface {
	Save(ctx context.Context, t model.RefreshToken) error
	// FindByTokenAndUserID matches a raw token against the hashes stored
	// for userID.  Returns repository.ErrNotFound when none matches.
	FindByTokenAndUserID(ctx context.Context, token, userID string) (model.RefreshToken, error)
	// RevokeByHash revokes the token with the given hash.  It reports true
	// only when this call performed the revocation; a missing or already
	// revoked token yields false.  Implementations must make the check and
	// the write atomic so that two concurrent callers cannot both get true.
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllByUserID(ctx context.Context, userID string) (int64, error)
}

// EventPublisher delivers auth lifecycle events.  Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.AuthEvent) error { return nil }
