package fs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/repo"
	"github.com/Gilad-Weinberger/Sikumon/internal/gateway"
)

// ErrNoSession is returned by Load when no session is stored.
var ErrNoSession = errors.New("no stored session")

// AuthFSStore keeps the session and the last login under the user config
// directory. Dir overrides the location (tests, portable installs).
type AuthFSStore struct {
	Dir string
}

var (
	_ repo.SessionStore     = AuthFSStore{}
	_ repo.UserContextStore = AuthFSStore{}
)

func (s AuthFSStore) configDir() (string, error) {
	p := s.Dir
	if p == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(dir, "Sikumon")
	}
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", err
	}
	return p, nil
}

func (s AuthFSStore) sessionPath() (string, error) {
	dir, err := s.configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

func (s AuthFSStore) lastLoginPath() (string, error) {
	dir, err := s.configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "last_login"), nil
}

// Save writes the session as JSON, readable only by the owner.
func (s AuthFSStore) Save(sess *gateway.Session) error {
	if sess == nil || sess.AccessToken == "" {
		return errors.New("empty session")
	}
	p, err := s.sessionPath()
	if err != nil {
		return err
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// Load reads the stored session.
func (s AuthFSStore) Load() (*gateway.Session, error) {
	p, err := s.sessionPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, ErrNoSession
	}
	var sess gateway.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", p, err)
	}
	if sess.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Clear removes the stored session. A missing file is not an error.
func (s AuthFSStore) Clear() error {
	p, err := s.sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SaveLogin remembers the account that signed in last.
func (s AuthFSStore) SaveLogin(login string) error {
	login = strings.TrimSpace(login)
	if login == "" {
		return errors.New("empty login")
	}
	p, err := s.lastLoginPath()
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(login), 0o600)
}

// LoadLogin returns the account that signed in last.
func (s AuthFSStore) LoadLogin() (string, error) {
	p, err := s.lastLoginPath()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	login := strings.TrimSpace(string(b))
	if login == "" {
		return "", errors.New("no stored login")
	}
	return login, nil
}
