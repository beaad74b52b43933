// Package session tracks the authenticated identity lifecycle. Each user id
// moves through Unresolved → Resolving → {Authenticated, Anonymous}; every
// transition into a settled state bumps the session epoch so asynchronous work
// issued under an older epoch can be recognized and discarded.
package session

import (
	"context"
	"sync"

	"cropcart/apperr"
	"cropcart/models"
)

type State int

const (
	Unresolved State = iota
	Resolving
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unresolved"
	}
}

// UserRepo is the profile-document surface the manager needs from the backend.
type UserRepo interface {
	FindByID(ctx context.Context, userID string) (models.User, error)
	UpdateProfile(ctx context.Context, userID string, fields map[string]any) error
}

type entry struct {
	state State
	epoch uint64
	user  models.User
}

// Manager resolves identities and fires hooks on settled transitions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	users    UserRepo

	onAuthenticated []func(ctx context.Context, user models.User, epoch uint64)
	onAnonymous     []func(ctx context.Context, userID string, epoch uint64)
}

func NewManager(users UserRepo) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		users:    users,
	}
}

// OnAuthenticated registers a hook fired after a user settles into
// Authenticated (cart/wishlist hydration, catalog and order preloads).
func (m *Manager) OnAuthenticated(fn func(ctx context.Context, user models.User, epoch uint64)) {
	m.onAuthenticated = append(m.onAuthenticated, fn)
}

// OnAnonymous registers a hook fired after a user settles into Anonymous
// (per-user state cleanup; the public catalog is untouched).
func (m *Manager) OnAnonymous(fn func(ctx context.Context, userID string, epoch uint64)) {
	m.onAnonymous = append(m.onAnonymous, fn)
}

func (m *Manager) session(userID string) *entry {
	e, ok := m.sessions[userID]
	if !ok {
		e = &entry{state: Unresolved}
		m.sessions[userID] = e
	}
	return e
}

// Resolve fetches the profile document and settles the session. The fetch runs
// outside the lock; its result is discarded if the epoch moved while it was in
// flight (e.g. a sign-out raced the resolution).
func (m *Manager) Resolve(ctx context.Context, userID string) (models.User, error) {
	m.mu.Lock()
	e := m.session(userID)
	e.state = Resolving
	issued := e.epoch
	m.mu.Unlock()

	user, err := m.users.FindByID(ctx, userID)

	m.mu.Lock()
	if e.epoch != issued {
		// A newer transition settled while we were fetching.
		current := e.user
		m.mu.Unlock()
		return current, apperr.Wrap(apperr.ErrAuth, "session superseded during resolution")
	}
	if err != nil {
		e.state = Anonymous
		e.epoch++
		m.mu.Unlock()
		return models.User{}, apperr.Wrap(apperr.ErrAuth, "identity %s did not resolve", userID)
	}
	e.state = Authenticated
	e.user = user
	e.epoch++
	epoch := e.epoch
	hooks := m.onAuthenticated
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx, user, epoch)
	}
	return user, nil
}

// SignOut settles the session into Anonymous and fires cleanup hooks.
func (m *Manager) SignOut(ctx context.Context, userID string) {
	m.mu.Lock()
	e := m.session(userID)
	e.state = Anonymous
	e.user = models.User{}
	e.epoch++
	epoch := e.epoch
	hooks := m.onAnonymous
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx, userID, epoch)
	}
}

// UpdateProfile merges partial fields into the identity's profile, remote
// first. If the backend rejects the write, local session state is left
// untouched so no partial update is ever visible.
func (m *Manager) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (models.User, error) {
	if len(fields) == 0 {
		return models.User{}, apperr.Wrap(apperr.ErrInvalid, "no fields to update")
	}
	if _, ok := fields["role"]; ok {
		return models.User{}, apperr.Wrap(apperr.ErrPermission, "role is immutable")
	}

	if err := m.users.UpdateProfile(ctx, userID, fields); err != nil {
		return models.User{}, err
	}

	m.mu.Lock()
	if e, ok := m.sessions[userID]; ok && e.state == Authenticated {
		applyProfileFields(&e.user, fields)
		user := e.user
		m.mu.Unlock()
		return user, nil
	}
	m.mu.Unlock()

	// No settled identity to merge into. Return the stored document without
	// caching it so the session state machine stays untouched.
	return m.users.FindByID(ctx, userID)
}

func applyProfileFields(u *models.User, fields map[string]any) {
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case "name":
			u.Name = s
		case "email":
			u.Email = s
		case "contact":
			u.Contact = s
		case "address":
			u.Address = s
		case "avatar":
			u.Avatar = s
		case "username":
			u.Username = s
		}
	}
}

// Identity returns the cached identity and state for a user id.
func (m *Manager) Identity(userID string) (models.User, State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[userID]
	if !ok {
		return models.User{}, Unresolved
	}
	return e.user, e.state
}

// Epoch returns the current session epoch for a user id.
func (m *Manager) Epoch(userID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[userID]
	if !ok {
		return 0
	}
	return e.epoch
}
