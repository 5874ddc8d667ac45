package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultTokenName is the profile used when none is given
const DefaultTokenName = "default"

// Token is a stored GitHub personal access token
type Token struct {
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore persists tokens by name
type TokenStore interface {
	Name() string
	Save(token *Token) error
	Load(name string) (*Token, error)
	Delete(name string) error
}

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// Manager tries its stores in order: the first store that accepts a token
// keeps it, and lookups return the first match.
type Manager struct {
	stores []TokenStore
}

// NewManager builds the standard chain: system keyring when available, an
// encrypted file under configDir, then the environment.
func NewManager(configDir string) (*Manager, error) {
	if configDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		configDir = dir
	}

	var stores []TokenStore
	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}

	fs, err := NewEncryptedFileStore(filepath.Join(configDir, "tokens.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fs, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Save stores the token in the first store that accepts it and returns
// that store's name
func (m *Manager) Save(token *Token) (string, error) {
	if token == nil || token.Value == "" {
		return "", ErrInvalidToken
	}
	if token.Name == "" {
		token.Name = DefaultTokenName
	}
	token.LastModified = time.Now()

	var errs []error
	for _, store := range m.stores {
		err := store.Save(token)
		if err == nil {
			return store.Name(), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
	}
	if len(errs) == 0 {
		return "", ErrStoreUnavailable
	}
	return "", fmt.Errorf("failed to store token: %w", errors.Join(errs...))
}

// Load returns the named token and the store it came from
func (m *Manager) Load(name string) (*Token, string, error) {
	if name == "" {
		name = DefaultTokenName
	}
	for _, store := range m.stores {
		if token, err := store.Load(name); err == nil && token != nil {
			return token, store.Name(), nil
		}
	}
	return nil, "", ErrTokenNotFound
}

// Delete removes the named token from every store that has it
func (m *Manager) Delete(name string) error {
	if name == "" {
		name = DefaultTokenName
	}
	deleted := false
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

// ConfigDir returns the per-user configuration directory, creating it
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "stargazers")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "stargazers")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "stargazers")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "stargazers")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Mask hides all but the first and last four characters of a secret
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
