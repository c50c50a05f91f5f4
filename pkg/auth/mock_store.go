package auth

import "sync"

// MockStore is an in-memory Store with error injection for tests
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]Account

	SaveError   error
	LoadError   error
	ListError   error
	DeleteError error
}

func NewMockStore() *MockStore {
	return &MockStore{accounts: make(map[string]Account)}
}

func (m *MockStore) Save(account *Account) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Username] = *account
	return nil
}

func (m *MockStore) Load(username string) (*Account, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (m *MockStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		a := a
		list = append(list, &a)
	}
	return list, nil
}

func (m *MockStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	return nil
}

// Count returns the number of stored accounts
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// NewMockManager returns a Manager backed by a single MockStore
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
