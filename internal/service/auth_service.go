// Package service holds the account and session use cases.  Services depend
// only on the capability interfaces in ports.go; cmd/server wires the
// MySQL/Redis/bcrypt/JWT implementations in.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/account-auth/internal/metrics"
	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
	"github.com/iliyamo/account-auth/internal/repository"
	"github.com/iliyamo/account-auth/internal/utils"
)

// options are the collaborators shared by every service.
type options struct {
	now     func() time.Time
	events  EventPublisher
	metrics metrics.AuthRecorder
	log     *slog.Logger
}

// Option customizes a service.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithEvents sets the publisher auth events go to.
func WithEvents(p EventPublisher) Option { return func(o *options) { o.events = p } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.AuthRecorder) Option { return func(o *options) { o.metrics = m } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

func buildOptions(opts []Option) options {
	o := options{
		now:     time.Now,
		events:  NopPublisher{},
		metrics: metrics.Nop{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) clock() time.Time { return o.now().UTC() }

// publish sends ev and only logs failures; a broker outage must never
// fail an auth request.
func (o options) publish(ctx context.Context, typ, userID, email string) {
	ev := queue.AuthEvent{
		Type:       typ,
		UserID:     userID,
		Email:      email,
		OccurredAt: o.clock().Format(time.RFC3339),
	}
	if err := o.events.Publish(ctx, ev); err != nil {
		o.log.WarnContext(ctx, "publish auth event failed", "type", typ, "err", err)
	}
}

func outcome(err error) string {
	if err == nil {
		return metrics.ResultSuccess
	}
	return model.KindOf(err).Code()
}

// LoginResult is returned by Login.  RefreshToken is the raw value for the
// client; only its hash is stored.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
}

// RefreshResult is returned by Refresh.  It intentionally carries no user id.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService runs the login / refresh / logout lifecycle.
type AuthService struct {
	users     UserStore
	tokens    RefreshTokenStore
	creds     CredentialVerifier
	issuer    TokenIssuer
	accessTTL time.Duration
	// padHash is checked against on unknown emails so both login failures
	// cost one hash comparison.
	padHash string
	options
}

// NewAuthService wires an AuthService.  accessTTL bounds access token life.
func NewAuthService(users UserStore, tokens RefreshTokenStore, creds CredentialVerifier, issuer TokenIssuer, accessTTL time.Duration, opts ...Option) *AuthService {
	if users == nil || tokens == nil || creds == nil || issuer == nil {
		panic("nil dependency passed to NewAuthService")
	}
	s := &AuthService{
		users:     users,
		tokens:    tokens,
		creds:     creds,
		issuer:    issuer,
		accessTTL: accessTTL,
		options:   buildOptions(opts),
	}
	pad, err := creds.Hash(uuid.NewString())
	if err != nil {
		s.log.Warn("login timing pad unavailable", "err", err)
	}
	s.padHash = pad
	return s
}

// Login checks email and password and opens a new session.  An unknown
// email and a wrong password fail identically with InvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	res, err := s.login(ctx, email, password)
	s.metrics.RecordLogin(outcome(err))
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.creds.Validate(password, s.padHash)
			return LoginResult{}, model.ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find user by email: %w", err)
	}
	if !s.creds.Validate(password, u.PasswordHash) {
		return LoginResult{}, model.ErrInvalidCredentials
	}

	access, payload, err := s.issueAccess(u)
	if err != nil {
		return LoginResult{}, err
	}
	issued, err := s.issuer.GenerateRefreshToken(u.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.Save(ctx, s.record(u.ID, issued)); err != nil {
		return LoginResult{}, fmt.Errorf("save refresh token: %w", err)
	}

	s.publish(ctx, queue.EventUserLoggedIn, u.ID, u.Email)
	return LoginResult{
		AccessToken:  access,
		RefreshToken: issued.Token,
		ExpiresAt:    payload.ExpiresAt,
		UserID:       u.ID,
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new access/refresh pair is returned.  Each refresh token is single-use.
func (s *AuthService) Refresh(ctx context.Context, token string) (RefreshResult, error) {
	res, err := s.refresh(ctx, token)
	s.metrics.RecordRefresh(outcome(err))
	return res, err
}

func (s *AuthService) refresh(ctx context.Context, token string) (RefreshResult, error) {
	claims, err := s.issuer.VerifyRefreshToken(token)
	if err != nil {
		s.log.DebugContext(ctx, "refresh token rejected", "err", err)
		return RefreshResult{}, model.ErrInvalidToken
	}

	stored, err := s.tokens.FindByTokenAndUserID(ctx, token, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RefreshResult{}, model.ErrRefreshTokenRevoked
		}
		return RefreshResult{}, fmt.Errorf("find refresh token: %w", err)
	}
	if !stored.IsValid(s.clock()) {
		return RefreshResult{}, model.ErrRefreshTokenRevoked
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return RefreshResult{}, fmt.Errorf("find user by id: %w", err)
		}
		// The account is gone: treat it as suspended and end every session.
		n, rerr := s.tokens.RevokeAllByUserID(ctx, claims.UserID)
		if rerr != nil {
			return RefreshResult{}, fmt.Errorf("revoke sessions of missing user: %w", rerr)
		}
		s.log.InfoContext(ctx, "revoked sessions of missing user", "user_id", claims.UserID, "count", n)
		s.publish(ctx, queue.EventSessionsRevoked, claims.UserID, "")
		return RefreshResult{}, model.ErrInvalidCredentials
	}

	access, payload, err := s.issueAccess(u)
	if err != nil {
		return RefreshResult{}, err
	}
	issued, err := s.issuer.GenerateRefreshToken(u.ID)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("issue refresh token: %w", err)
	}

	// Revoke before persisting the replacement so a crash in between never
	// leaves two usable tokens.  Losing the conditional revoke means another
	// request rotated this token first.
	revoked, err := s.tokens.RevokeByHash(ctx, stored.TokenHash)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !revoked {
		return RefreshResult{}, model.ErrRefreshTokenRevoked
	}
	if err := s.tokens.Save(ctx, s.record(u.ID, issued)); err != nil {
		return RefreshResult{}, fmt.Errorf("save refresh token: %w", err)
	}

	s.publish(ctx, queue.EventSessionRefreshed, u.ID, u.Email)
	return RefreshResult{
		AccessToken:  access,
		RefreshToken: issued.Token,
		ExpiresAt:    payload.ExpiresAt,
	}, nil
}

// Logout revokes the stored record matching token.  Unknown or already
// revoked tokens are not an error and are left untouched.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	s.metrics.RecordLogout()
	if token == "" {
		return nil
	}
	revoked, err := s.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(token))
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if revoked {
		var userID string
		if claims, err := s.issuer.VerifyRefreshToken(token); err == nil {
			userID = claims.UserID
		}
		s.publish(ctx, queue.EventSessionLoggedOut, userID, "")
	}
	return nil
}

func (s *AuthService) issueAccess(u model.User) (string, model.AccessTokenPayload, error) {
	payload := model.NewAccessTokenPayload(u, s.clock(), s.accessTTL)
	access, err := s.issuer.GenerateAccessToken(payload)
	if err != nil {
		return "", model.AccessTokenPayload{}, fmt.Errorf("issue access token: %w", err)
	}
	return access, payload, nil
}

func (s *AuthService) record(userID string, issued model.IssuedRefreshToken) model.RefreshToken {
	return model.RefreshToken{
		UserID:    userID,
		TokenHash: issued.TokenHash,
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: s.clock(),
	}
}
