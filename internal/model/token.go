package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the token.
//	TokenHash – SHA-256 hex digest of the raw token.
//	ExpiresAt – expiration timestamp of the token.
//	RevokedAt – when the token was revoked (nil while usable).
//	CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// IsValid reports whether the token is neither revoked nor expired at now.
func (t RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// AccessTokenPayload is the claim set signed into an access token.
type AccessTokenPayload struct {
	UserID    string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// NewAccessTokenPayload builds the payload for u expiring ttl after now.
func NewAccessTokenPayload(u User, now time.Time, ttl time.Duration) AccessTokenPayload {
	return AccessTokenPayload{
		UserID:    u.ID,
		Email:     u.Email,
		Roles:     []string{string(u.Role)},
		ExpiresAt: now.UTC().Add(ttl).Truncate(time.Second),
	}
}

// IssuedRefreshToken is a freshly minted refresh token.  Token goes to
// the client; TokenHash and ExpiresAt go to the store.
type IssuedRefreshToken struct {
	Token     string
	TokenHash string
	ExpiresAt time.Time
}

// RefreshClaims is what verifying a refresh token reveals.
type RefreshClaims struct {
	UserID  string
	TokenID string
}
