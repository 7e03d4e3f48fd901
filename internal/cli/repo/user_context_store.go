package repo

// UserContextStore remembers the last signed-in account, which selects the
// per-user cache database.
type UserContextStore interface {
	SaveLogin(login string) error
	LoadLogin() (string, error)
}
