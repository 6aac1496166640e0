// Package session owns the process-wide authenticated session: it signs in
// against the internal API, persists the result and hands out snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartsim-dev/smartsim/internal/auth"
	"github.com/smartsim-dev/smartsim/internal/client"
	"github.com/smartsim-dev/smartsim/internal/models"
)

// ErrNotAuthenticated is returned when an operation needs a session and there is none
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'smartsim login' first")

// AuthError is a failed sign-in
type AuthError struct {
	Email string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("sign in as %s: %v", e.Email, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Authenticator exchanges credentials for a session
type Authenticator interface {
	CreateSession(ctx context.Context, email, password string) (*client.SessionResponse, error)
}

// Manager holds the single session of the process. It is safe for concurrent use.
type Manager struct {
	store  *Store
	api    Authenticator
	logger zerolog.Logger
	now    func() time.Time

	// writeMu serializes persist-then-swap so storage and memory change together
	writeMu sync.Mutex

	mu    sync.RWMutex
	state models.Session

	subMu     sync.Mutex
	subs      map[int]func(models.Session)
	nextSubID int
}

// NewManager restores the persisted session once and returns the manager.
// Missing, incomplete, undecodable or expired records start it signed out.
func NewManager(ctx context.Context, store *Store, api Authenticator, logger zerolog.Logger) (*Manager, error) {
	m := &Manager{
		store:  store,
		api:    api,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]func(models.Session)),
	}
	if err := m.restore(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) restore(ctx context.Context) error {
	sess, err := m.store.Load(ctx)
	if errors.Is(err, ErrCorruptRecord) {
		m.logger.Warn().Err(err).Msg("Ignoring unreadable persisted session")
		return nil
	}
	if err != nil {
		return err
	}

	if !sess.Authenticated() {
		m.logger.Debug().Msg("No persisted session, starting signed out")
		return nil
	}

	if auth.Expired(sess.Token, m.now()) {
		m.logger.Warn().Str("user_id", sess.User.ID).Msg("Persisted token has expired, starting signed out")
		return nil
	}

	m.state = sess
	m.logger.Debug().
		Str("user_id", sess.User.ID).
		Bool("admin", sess.User.IsAdmin).
		Msg("Restored persisted session")
	return nil
}

// CurrentUser returns a copy of the signed-in user
func (m *Manager) CurrentUser() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.state.Authenticated() {
		return models.User{}, false
	}
	return *m.state.User, true
}

// Snapshot returns a copy of the current session
func (m *Manager) Snapshot() models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Clone()
}

// Token returns the session token, "" when signed out
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Token
}

// Authorization returns the Authorization header value for internal API calls
func (m *Manager) Authorization() string {
	return auth.BearerHeader(m.Token())
}

// ExpiresAt returns the token expiry when the token is a JWT carrying one
func (m *Manager) ExpiresAt() (time.Time, bool) {
	return auth.Expiry(m.Token())
}

// SignIn authenticates and replaces the session. On any failure the
// previous session stays in place.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	resp, err := m.api.CreateSession(ctx, email, password)
	if err != nil {
		m.logger.Warn().Err(err).Str("email", email).Msg("Sign in rejected")
		return &AuthError{Email: email, Err: err}
	}

	user := resp.User
	user.IsAdmin = resp.IsAdmin()
	next := models.Session{Token: resp.Token, User: &user}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.persist(ctx, next); err != nil {
		return err
	}

	m.set(next)
	m.logger.Info().Str("user_id", user.ID).Bool("admin", user.IsAdmin).Msg("Signed in")
	return nil
}

// SignOut clears the session in memory and in storage. Calling it while
// signed out is a no-op apart from clearing storage again.
func (m *Manager) SignOut(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return err
	}

	wasSignedIn := m.Snapshot().Authenticated()
	m.set(models.Session{})
	if wasSignedIn {
		m.logger.Info().Msg("Signed out")
	}
	return nil
}

// UpdateUser replaces the stored user, keeping the token and the role.
// It does not contact the server and does not compare ids.
func (m *Manager) UpdateUser(ctx context.Context, user models.User) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	current := m.Snapshot()
	if !current.Authenticated() {
		return ErrNotAuthenticated
	}

	user.IsAdmin = current.User.IsAdmin
	next := models.Session{Token: current.Token, User: &user}

	if err := m.persist(ctx, next); err != nil {
		return err
	}

	m.set(next)
	m.logger.Debug().Str("user_id", user.ID).Msg("Updated session user")
	return nil
}

// persist writes next. Once the record is written the change has happened,
// so a failed legacy cleanup is only logged.
func (m *Manager) persist(ctx context.Context, next models.Session) error {
	if err := m.store.Save(ctx, next); err != nil {
		return err
	}
	if err := m.store.DropLegacy(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to remove legacy session keys")
	}
	return nil
}

// Subscribe registers fn to receive the session after every change.
// fn must not call SignIn, SignOut or UpdateUser. The returned function
// unregisters it.
func (m *Manager) Subscribe(fn func(models.Session)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) set(next models.Session) {
	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	// Subscribers run outside the state lock so they may read the manager
	m.subMu.Lock()
	fns := make([]func(models.Session), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(next.Clone())
	}
}
