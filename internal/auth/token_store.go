package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Session is the persisted result of a successful login.
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Username    string    `json:"username,omitempty"`
	FullName    string    `json:"full_name,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// FileTokenStore writes the login session to a JSON file on disk. Reads and
// writes hold an advisory lock on a sibling .lock file so concurrent CLI
// invocations never observe a half-written token.
type FileTokenStore struct {
	path string
	lock *flock.Flock
}

// NewFileTokenStore builds a FileTokenStore rooted at the provided path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the session from disk. A missing file resolves to an empty session.
func (s *FileTokenStore) Load() (Session, error) {
	if err := s.ensureDir(); err != nil {
		return Session{}, err
	}
	if err := s.lock.RLock(); err != nil {
		return Session{}, fmt.Errorf("lock token file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read token file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("decode token file: %w", err)
	}
	return session, nil
}

// Save persists the session to disk with restricted permissions.
func (s *FileTokenStore) Save(session Session) error {
	if strings.TrimSpace(session.AccessToken) == "" {
		return errors.New("save token: access token is empty")
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	if session.SavedAt.IsZero() {
		session.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Clearing an absent session is not an error.
func (s *FileTokenStore) Clear() error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock token file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// Token implements TokenProvider.
func (s *FileTokenStore) Token(context.Context) (string, error) {
	session, err := s.Load()
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(session.AccessToken)
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

func (s *FileTokenStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure token directory: %w", err)
	}
	return nil
}
