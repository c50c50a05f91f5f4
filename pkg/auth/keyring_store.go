package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igdl"
	keyringPrefix  = "instagram_"
	// keyringIndex holds the JSON list of stored usernames; the keyring API
	// cannot enumerate entries itself
	keyringIndex = "igdl_accounts"
)

// KeyringStore keeps accounts in the system keychain
type KeyringStore struct {
	mu sync.Mutex
}

// NewKeyringStore checks the keychain and fails if it is unusable
func NewKeyringStore() (*KeyringStore, error) {
	const check = "igdl_check"
	if err := keyring.Set(keyringService, check, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, check)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Save(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Set(keyringService, keyringPrefix+account.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return k.updateIndex(func(names map[string]bool) { names[account.Username] = true })
}

func (k *KeyringStore) Load(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

func (k *KeyringStore) List() ([]*Account, error) {
	k.mu.Lock()
	names, err := k.readIndex()
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}

	accounts := make([]*Account, 0, len(names))
	for _, name := range names {
		account, err := k.Load(name)
		if errors.Is(err, ErrCredentialsNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	err := keyring.Delete(keyringService, keyringPrefix+username)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return k.updateIndex(func(names map[string]bool) { delete(names, username) })
}

func (k *KeyringStore) readIndex() ([]string, error) {
	raw, err := keyring.Get(keyringService, keyringIndex)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("corrupt keyring index: %w", err)
	}
	return names, nil
}

// updateIndex must be called with k.mu held
func (k *KeyringStore) updateIndex(change func(map[string]bool)) error {
	current, err := k.readIndex()
	if err != nil {
		return err
	}

	set := make(map[string]bool, len(current)+1)
	for _, n := range current {
		set[n] = true
	}
	change(set)

	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)

	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringIndex, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring index: %w", err)
	}
	return nil
}
