package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/account-auth/internal/model"
	"github.com/iliyamo/account-auth/internal/queue"
	"github.com/iliyamo/account-auth/internal/repository"
	"github.com/iliyamo/account-auth/internal/utils"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	byID   map[string]model.User
	saves  int
	failOn error
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{byID: map[string]model.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return model.User{}, m.failOn
	}
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) find(match func(model.User) bool) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != nil {
		return model.User{}, m.failOn
	}
	for _, u := range m.byID {
		if match(u) {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	email = model.NormalizeEmail(email)
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memUsers) FindByName(_ context.Context, name string) (model.User, error) {
	return m.find(func(u model.User) bool { return u.Name == name })
}

func (m *memUsers) List(context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memUsers) Save(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.Email == u.Email || o.Name == u.Name {
			return repository.ErrDuplicate
		}
	}
	m.byID[u.ID] = u
	m.saves++
	return nil
}

func (m *memUsers) Update(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrNotFound
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) DeleteByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.byID {
		if u.Email == email {
			delete(m.byID, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memTokens is an in-memory RefreshTokenStore with the same conditional
// revoke semantics as the SQL and Redis stores.
type memTokens struct {
	mu     sync.Mutex
	byHash map[string]model.RefreshToken
	writes int
	now    func() time.Time
}

func newMemTokens(now func() time.Time) *memTokens {
	return &memTokens{byHash: map[string]model.RefreshToken{}, now: now}
}

func (m *memTokens) Save(_ context.Context, t model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[t.TokenHash] = t
	m.writes++
	return nil
}

func (m *memTokens) FindByTokenAndUserID(_ context.Context, token, userID string) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[utils.HashRefreshRaw(token)]
	if !ok || t.UserID != userID {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[hash]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	now := m.now()
	t.RevokedAt = &now
	m.byHash[hash] = t
	m.writes++
	return true, nil
}

func (m *memTokens) RevokeAllByUserID(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := m.now()
	for h, t := range m.byHash {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.byHash[h] = t
			n++
		}
	}
	m.writes++
	return n, nil
}

func (m *memTokens) get(raw string) (model.RefreshToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byHash[utils.HashRefreshRaw(raw)]
	return t, ok
}

func (m *memTokens) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// plainHasher stands in for bcrypt; "h:" + plain is the hash.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "h:" + plain, nil }
func (plainHasher) Validate(plain, hash string) bool  { return hash == "h:"+plain }

// countingHasher is a plainHasher that counts Validate calls.
type countingHasher struct {
	plainHasher
	validations atomic.Int32
}

func (h *countingHasher) Validate(plain, hash string) bool {
	h.validations.Add(1)
	return h.plainHasher.Validate(plain, hash)
}

// recordingPublisher keeps the events it was given.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

var errBoom = errors.New("boom")
