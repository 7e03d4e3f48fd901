package repo

import "github.com/Gilad-Weinberger/Sikumon/internal/gateway"

// SessionStore persists the signed-in session between CLI runs.
type SessionStore interface {
	Save(sess *gateway.Session) error
	// Load returns an error when nothing is stored.
	Load() (*gateway.Session, error)
	Clear() error
}
