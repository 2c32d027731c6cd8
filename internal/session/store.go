// Package session persists the client-held authentication state: the access
// token, the refresh token and the cached user.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
)

// Storage keys shared by every backend.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// ErrNoSession is returned by partial updates when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Store is the persisted session. Get on an empty store returns a zero
// Session and no error. Set and Clear write all three fields together.
type Store interface {
	Get(ctx context.Context) (domain.Session, error)
	Set(ctx context.Context, s domain.Session) error
	Clear(ctx context.Context) error
	SetAccessToken(ctx context.Context, token string) error
	SetUser(ctx context.Context, user *domain.User) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	s  domain.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySession(m.s), nil
}

func (m *MemoryStore) Set(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = copySession(s)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = domain.Session{}
	return nil
}

func (m *MemoryStore) SetAccessToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.IsZero() {
		return ErrNoSession
	}
	m.s.AccessToken = token
	return nil
}

func (m *MemoryStore) SetUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s.IsZero() {
		return ErrNoSession
	}
	m.s.User = copyUser(user)
	return nil
}

func copySession(s domain.Session) domain.Session {
	s.User = copyUser(s.User)
	return s
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
