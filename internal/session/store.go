package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartsim-dev/smartsim/internal/models"
	"github.com/smartsim-dev/smartsim/internal/storage"
)

// Storage keys, all under the application prefix
const (
	KeyPrefix = "@smartsim:"

	// KeySession holds token and user as one JSON record
	KeySession = KeyPrefix + "session"

	// Older three-key layout, read for migration and always cleared
	KeyToken = KeyPrefix + "token"
	KeyUser  = KeyPrefix + "user"
	KeyAdmin = KeyPrefix + "admin"
)

// ErrCorruptRecord is returned by Load when a stored value cannot be decoded
var ErrCorruptRecord = errors.New("corrupt session record")

// AllKeys lists every key the session store may have written
var AllKeys = []string{KeySession, KeyToken, KeyUser, KeyAdmin}

// Store persists the session in a KV backend
type Store struct {
	kv storage.KV
}

// NewStore creates a session store over kv
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Load reads the persisted session. An incomplete record (token without
// user or the reverse) loads as the empty session without error.
func (s *Store) Load(ctx context.Context) (models.Session, error) {
	raw, err := s.kv.Get(ctx, KeySession)
	switch {
	case err == nil:
		var sess models.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return models.Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		if !sess.Authenticated() {
			return models.Session{}, nil
		}
		return sess, nil
	case errors.Is(err, storage.ErrNotFound):
		return s.loadLegacy(ctx)
	default:
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
}

func (s *Store) loadLegacy(ctx context.Context) (models.Session, error) {
	token, err := s.get(ctx, KeyToken)
	if err != nil || token == "" {
		return models.Session{}, err
	}
	rawUser, err := s.get(ctx, KeyUser)
	if err != nil || rawUser == "" {
		return models.Session{}, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return models.Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	admin, err := s.get(ctx, KeyAdmin)
	if err != nil {
		return models.Session{}, err
	}
	if admin != "" && admin != "false" {
		user.IsAdmin = true
	}

	return models.Session{Token: token, User: &user}, nil
}

// get returns "" for a missing key
func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return v, nil
}

// Save writes token and user as a single value. Legacy keys are left in
// place; the record takes precedence over them on Load.
func (s *Store) Save(ctx context.Context, sess models.Session) error {
	if !sess.Authenticated() {
		return fmt.Errorf("refusing to persist an incomplete session")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.kv.Set(ctx, KeySession, string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DropLegacy removes the three-key layout
func (s *Store) DropLegacy(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyToken, KeyUser, KeyAdmin); err != nil {
		return fmt.Errorf("failed to remove legacy session keys: %w", err)
	}
	return nil
}

// Clear removes every session key
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
