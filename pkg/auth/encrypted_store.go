package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// EnvPassphrase overrides the generated passphrase file
	EnvPassphrase = "IGDL_PASSPHRASE"
)

// EncryptedFileStore keeps all accounts in one AES-GCM encrypted JSON file.
// The key is derived with PBKDF2 from a passphrase that is read from
// IGDL_PASSPHRASE or generated once into a sibling .passphrase file.
type EncryptedFileStore struct {
	fs         afero.Fs
	path       string
	passphrase string
	mu         sync.RWMutex
}

// fileFormat is the on-disk layout
type fileFormat struct {
	Version   int       `json:"version"`
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Modified  time.Time `json:"modified"`
}

// EncryptedOption configures an EncryptedFileStore
type EncryptedOption func(*EncryptedFileStore)

// WithPassphrase fixes the passphrase instead of reading or generating one
func WithPassphrase(p string) EncryptedOption {
	return func(e *EncryptedFileStore) { e.passphrase = p }
}

// NewEncryptedFileStore opens the store at path on fs
func NewEncryptedFileStore(fs afero.Fs, path string, opts ...EncryptedOption) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := fs.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	e := &EncryptedFileStore{fs: fs, path: path}
	for _, opt := range opts {
		opt(e)
	}

	if e.passphrase == "" {
		p, err := e.loadPassphrase()
		if err != nil {
			return nil, fmt.Errorf("failed to get passphrase: %w", err)
		}
		e.passphrase = p
	}
	return e, nil
}

func (e *EncryptedFileStore) Save(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, salt, err := e.read()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load existing data: %w", err)
	}
	if accounts == nil {
		accounts = make(map[string]Account)
	}
	accounts[account.Username] = *account

	return e.write(accounts, salt)
}

func (e *EncryptedFileStore) Load(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, _, err := e.read()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	account, ok := accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, _, err := e.read()
	if errors.Is(err, os.ErrNotExist) {
		return []*Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	list := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		a := a
		list = append(list, &a)
	}
	return list, nil
}

func (e *EncryptedFileStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, salt, err := e.read()
	if errors.Is(err, os.ErrNotExist) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	if _, ok := accounts[username]; !ok {
		return ErrCredentialsNotFound
	}

	delete(accounts, username)
	if len(accounts) == 0 {
		return e.fs.Remove(e.path)
	}
	return e.write(accounts, salt)
}

// read decrypts the file and returns its accounts and salt
func (e *EncryptedFileStore) read() (map[string]Account, []byte, error) {
	content, err := afero.ReadFile(e.fs, e.path)
	if err != nil {
		return nil, nil, err
	}

	var ff fileFormat
	if err := json.Unmarshal(content, &ff); err != nil {
		return nil, nil, fmt.Errorf("failed to parse file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(ff.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(ff.Encrypted)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	plain, err := decrypt(sealed, e.key(salt))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt data: %w", err)
	}

	var accounts map[string]Account
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	return accounts, salt, nil
}

// write encrypts accounts, generating a salt when none is given
func (e *EncryptedFileStore) write(accounts map[string]Account, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := encrypt(plain, e.key(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	content, err := json.MarshalIndent(fileFormat{
		Version:   1,
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
		Modified:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal file data: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := afero.WriteFile(e.fs, tmp, content, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return e.fs.Rename(tmp, e.path)
}

func (e *EncryptedFileStore) key(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

func (e *EncryptedFileStore) loadPassphrase() (string, error) {
	if p := os.Getenv(EnvPassphrase); p != "" {
		return p, nil
	}

	file := filepath.Join(filepath.Dir(e.path), ".passphrase")
	if content, err := afero.ReadFile(e.fs, file); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	p := base64.URLEncoding.EncodeToString(b)
	if err := afero.WriteFile(e.fs, file, []byte(p), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return p, nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
