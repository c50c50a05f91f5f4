package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/afero"
)

// Account is a stored Instagram login
type Account struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// Store persists accounts
type Store interface {
	Save(account *Account) error
	Load(username string) (*Account, error)
	List() ([]*Account, error)
	Delete(username string) error
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Manager consults its stores in order: the first one that accepts a write
// wins, and reads fall through until one has the account.
type Manager struct {
	stores []Store
	now    func() time.Time
}

// NewManager creates a manager over the system keyring (when usable), the
// encrypted credentials file and the environment
func NewManager() (*Manager, error) {
	var stores []Store

	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	fileStore, err := NewEncryptedFileStore(afero.NewOsFs(), filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fileStore, NewEnvironmentStore())

	return NewManagerWithStores(stores...), nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores, now: time.Now}
}

// Save stores the account in the first store that accepts it
func (m *Manager) Save(account *Account) error {
	if account == nil || account.Username == "" {
		return errors.New("username is required")
	}
	if account.Password == "" {
		return errors.New("password is required")
	}
	account.LastModified = m.now()

	var errs []error
	for _, store := range m.stores {
		err := store.Save(account)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errors.New("no available credential stores")
	}
	return fmt.Errorf("failed to store credentials: %w", errors.Join(errs...))
}

// Load returns the account from the first store that has it
func (m *Manager) Load(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Load(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user %s", ErrCredentialsNotFound, username)
}

// Default returns environment credentials if set, otherwise the most
// recently saved account
func (m *Manager) Default() (*Account, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if account, err := env.Load(""); err == nil {
				return account, nil
			}
		}
	}

	accounts, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return accounts[0], nil
}

// List merges the accounts of every store, newest first. When a username
// appears in more than one store the newest copy wins.
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, a := range accounts {
			if have, ok := byName[a.Username]; !ok || a.LastModified.After(have.LastModified) {
				byName[a.Username] = a
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, a := range byName {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastModified.Equal(result[j].LastModified) {
			return result[i].Username < result[j].Username
		}
		return result[i].LastModified.After(result[j].LastModified)
	})
	return result, nil
}

// Delete removes the account from every store that has it
func (m *Manager) Delete(username string) error {
	deleted := false
	var lastErr error
	for _, store := range m.stores {
		err := store.Delete(username)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for user %s", ErrCredentialsNotFound, username)
}

// Resolve fills in whichever of username and password is missing from the
// stored accounts. Explicit values are returned untouched.
func (m *Manager) Resolve(username, password string) (string, string, error) {
	if username != "" && password != "" {
		return username, password, nil
	}

	var (
		account *Account
		err     error
	)
	if username != "" {
		account, err = m.Load(username)
	} else {
		account, err = m.Default()
	}
	if err != nil {
		return username, password, err
	}

	if password == "" {
		password = account.Password
	}
	return account.Username, password, nil
}

// ConfigDir returns the per-user igdl directory, creating it if needed
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "igdl")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "igdl")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "igdl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "igdl")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Mask hides a secret for display
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
