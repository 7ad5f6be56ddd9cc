package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"time" // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // random token ids (jti)

	"github.com/iliyamo/account-auth/internal/model"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

var (
	errWrongTokenType = errors.New("unexpected token type")
	errMissingSubject = errors.New("token has no subject")
)

// accessClaims is the JWT body of an access token.
type accessClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	Type  string   `json:"typ"`
	jwt.RegisteredClaims
}

// refreshClaims is the JWT body of a refresh token.  The jti makes every
// token unique even when two are minted for one user within a second.
type refreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 access and refresh tokens.  Access
// and refresh tokens use separate secrets so one can never be replayed
// as the other.
type JWTIssuer struct {
	AccessSecret  []byte
	RefreshSecret []byte
	RefreshTTL    time.Duration
	Now           func() time.Time
}

// NewJWTIssuer builds an issuer.  An empty refreshSecret reuses accessSecret;
// the typ claim still keeps the two kinds apart.
func NewJWTIssuer(accessSecret, refreshSecret string, refreshTTL time.Duration) *JWTIssuer {
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	return &JWTIssuer{
		AccessSecret:  []byte(accessSecret),
		RefreshSecret: []byte(refreshSecret),
		RefreshTTL:    refreshTTL,
		Now:           time.Now,
	}
}

func (i *JWTIssuer) now() time.Time {
	if i.Now == nil {
		return time.Now().UTC()
	}
	return i.Now().UTC()
}

// GenerateAccessToken signs p.  The token expires at p.ExpiresAt.
func (i *JWTIssuer) GenerateAccessToken(p model.AccessTokenPayload) (string, error) {
	claims := accessClaims{
		Email: p.Email,
		Roles: p.Roles,
		Type:  typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(i.now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.AccessSecret)
}

// GenerateRefreshToken mints a refresh token for userID along with the
// hash and expiry to persist.
func (i *JWTIssuer) GenerateRefreshToken(userID string) (model.IssuedRefreshToken, error) {
	now := i.now()
	exp := now.Add(i.RefreshTTL).Truncate(time.Second)
	claims := refreshClaims{
		Type: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.RefreshSecret)
	if err != nil {
		return model.IssuedRefreshToken{}, err
	}
	return model.IssuedRefreshToken{
		Token:     signed,
		TokenHash: HashRefreshRaw(signed),
		ExpiresAt: exp,
	}, nil
}

// VerifyRefreshToken checks signature, algorithm, type and expiry of raw
// and returns the embedded owner.
func (i *JWTIssuer) VerifyRefreshToken(raw string) (model.RefreshClaims, error) {
	var claims refreshClaims
	if err := i.parse(raw, &claims, i.RefreshSecret); err != nil {
		return model.RefreshClaims{}, err
	}
	if claims.Type != typeRefresh {
		return model.RefreshClaims{}, errWrongTokenType
	}
	if claims.Subject == "" {
		return model.RefreshClaims{}, errMissingSubject
	}
	return model.RefreshClaims{UserID: claims.Subject, TokenID: claims.ID}, nil
}

// VerifyAccessToken checks raw and returns its payload.
func (i *JWTIssuer) VerifyAccessToken(raw string) (model.AccessTokenPayload, error) {
	var claims accessClaims
	if err := i.parse(raw, &claims, i.AccessSecret); err != nil {
		return model.AccessTokenPayload{}, err
	}
	if claims.Type != typeAccess {
		return model.AccessTokenPayload{}, errWrongTokenType
	}
	if claims.Subject == "" {
		return model.AccessTokenPayload{}, errMissingSubject
	}
	return model.AccessTokenPayload{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (i *JWTIssuer) parse(raw string, claims jwt.Claims, secret []byte) error {
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return jwt.ErrTokenSignatureInvalid
	}
	return nil
}

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string.  Only this value is ever stored.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
