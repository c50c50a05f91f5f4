package auth

import (
	"os"
	"time"
)

const (
	EnvUsername = "IGDL_USERNAME"
	EnvPassword = "IGDL_PASSWORD"
)

// EnvironmentStore reads a single account from IGDL_USERNAME and
// IGDL_PASSWORD. It is read-only.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Save(account *Account) error {
	return ErrStoreUnavailable
}

// Load returns the environment account. An empty username matches it, and
// so does the username it carries.
func (e *EnvironmentStore) Load(username string) (*Account, error) {
	user, pass := os.Getenv(EnvUsername), os.Getenv(EnvPassword)
	if user == "" || pass == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != user {
		return nil, ErrCredentialsNotFound
	}
	return &Account{Username: user, Password: pass, LastModified: time.Now()}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Load("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}
