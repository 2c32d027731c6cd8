// Package auth holds the in-memory session context: who is signed in, and
// the transitions between signed in and signed out.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dev-tahsin7/LMS-TestApp/internal/api"
	"github.com/dev-tahsin7/LMS-TestApp/internal/domain"
	"github.com/dev-tahsin7/LMS-TestApp/internal/session"
	apperrors "github.com/dev-tahsin7/LMS-TestApp/pkg/errors"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/logger"
	"github.com/dev-tahsin7/LMS-TestApp/pkg/validator"
)

// State is the session context's lifecycle state.
type State int

const (
	Initializing State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// API is the subset of the LMS client the session context drives.
type API interface {
	Login(ctx context.Context, creds domain.LoginCredentials) (domain.AuthResponse, error)
	Signup(ctx context.Context, creds domain.SignupCredentials) (domain.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (domain.User, error)
	UpdateProfile(ctx context.Context, patch domain.UserPatch) (domain.User, error)
}

// Snapshot is a consistent read of the context.
type Snapshot struct {
	State State        `json:"state"`
	User  *domain.User `json:"user"`
}

// Manager is the session context. It is safe for concurrent use; no lock is
// held across a network call.
type Manager struct {
	api    API
	store  session.Store
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	user      *domain.User
	navigator api.Navigator
}

// NewManager creates a manager in the Initializing state. Call Init to
// resume a stored session.
func NewManager(client API, store session.Store, logger *slog.Logger) *Manager {
	return &Manager{
		api:    client,
		store:  store,
		logger: logger,
		state:  Initializing,
	}
}

// SetNavigator registers the front end told about forced logouts.
func (m *Manager) SetNavigator(n api.Navigator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigator = n
}

// Init resumes a stored session. A stored access token and user are checked
// against the server; anything else leaves the context unauthenticated.
func (m *Manager) Init(ctx context.Context) {
	s, err := m.store.Get(ctx)
	if err != nil {
		m.log(ctx).WarnContext(ctx, "failed to read stored session",
			slog.String("error", err.Error()),
		)
		m.discardStored(ctx)
		m.setUnauthenticated()
		return
	}
	if !s.Valid() {
		m.setUnauthenticated()
		return
	}

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		m.log(ctx).WarnContext(ctx, "failed to get current user",
			slog.String("error", err.Error()),
		)
		m.discardStored(ctx)
		m.setUnauthenticated()
		return
	}

	if err := m.store.SetUser(ctx, &user); err != nil {
		m.log(ctx).WarnContext(ctx, "failed to cache current user",
			slog.String("error", err.Error()),
		)
	}
	m.setAuthenticated(user)
}

// Login authenticates with email and password and persists the session.
func (m *Manager) Login(ctx context.Context, creds domain.LoginCredentials) error {
	if err := validator.Validate(creds); err != nil {
		return err
	}

	resp, err := m.api.Login(ctx, creds)
	if err != nil {
		m.log(ctx).InfoContext(ctx, "login failed", slog.String("error", err.Error()))
		return err
	}
	return m.establish(ctx, resp)
}

// Signup creates an account and persists its session.
func (m *Manager) Signup(ctx context.Context, creds domain.SignupCredentials) error {
	if err := validator.Validate(creds); err != nil {
		return err
	}

	resp, err := m.api.Signup(ctx, creds)
	if err != nil {
		m.log(ctx).InfoContext(ctx, "signup failed", slog.String("error", err.Error()))
		return err
	}
	return m.establish(ctx, resp)
}

func (m *Manager) establish(ctx context.Context, resp domain.AuthResponse) error {
	if err := m.store.Set(ctx, domain.NewSession(resp)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.setAuthenticated(resp.User)
	m.log(ctx).InfoContext(ctx, "signed in", slog.String("user_id", strconv.FormatInt(resp.User.ID, 10)))
	return nil
}

// Logout ends the session. A server failure is logged; the context always
// ends unauthenticated.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx); err != nil {
		m.log(ctx).WarnContext(ctx, "logout failed", slog.String("error", err.Error()))
	}
	m.setUnauthenticated()
}

// UpdateUser applies a profile patch and replaces the current user with the
// server's response. The response is persisted before the in-memory user
// changes; if that write fails the server already holds the update, the
// error is returned and the in-memory user is left as it was.
func (m *Manager) UpdateUser(ctx context.Context, patch domain.UserPatch) (domain.User, error) {
	if patch.IsEmpty() {
		return domain.User{}, apperrors.InvalidInput("no profile fields to update")
	}
	if err := validator.Validate(patch); err != nil {
		return domain.User{}, err
	}

	user, err := m.api.UpdateProfile(ctx, patch)
	if err != nil {
		return domain.User{}, err
	}

	if err := m.store.SetUser(ctx, &user); err != nil {
		return user, fmt.Errorf("cache updated user: %w", err)
	}

	m.mu.Lock()
	if m.state == Authenticated {
		u := user
		m.user = &u
	}
	m.mu.Unlock()
	return user, nil
}

// RedirectToLogin drops the current user after the API client ended the
// session, then tells the front end.
func (m *Manager) RedirectToLogin(ctx context.Context) {
	m.mu.Lock()
	m.state = Unauthenticated
	m.user = nil
	n := m.navigator
	m.mu.Unlock()

	m.log(ctx).InfoContext(ctx, "session expired, login required")
	if n != nil {
		n.RedirectToLogin(ctx)
	}
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// IsLoading reports whether Init has not finished yet.
func (m *Manager) IsLoading() bool {
	return m.State() == Initializing
}

// Snapshot returns state and user read together.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := Snapshot{State: m.state}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

func (m *Manager) setAuthenticated(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Authenticated
	m.user = &user
}

func (m *Manager) setUnauthenticated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Unauthenticated
	m.user = nil
}

func (m *Manager) discardStored(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log(ctx).ErrorContext(ctx, "failed to clear session store", slog.String("error", err.Error()))
	}
}

func (m *Manager) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, m.logger)
}
