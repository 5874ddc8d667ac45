package auth

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type memoryStore struct {
	mu     sync.Mutex
	name   string
	tokens map[string]Token
	fail   error
}

func newMemoryStore(name string) *memoryStore {
	return &memoryStore{name: name, tokens: make(map[string]Token)}
}

func (m *memoryStore) Name() string { return m.name }

func (m *memoryStore) Save(token *Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.tokens[token.Name] = *token
	return nil
}

func (m *memoryStore) Load(name string) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[name]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

func (m *memoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[name]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, name)
	return nil
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	_, err = store.Load("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Save(&Token{Name: "default", Value: "ghp_secret"}))

	token, err := store.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", token.Value)

	require.NoError(t, store.Delete("default"))
	assert.ErrorIs(t, store.Delete("default"), ErrTokenNotFound)
	assert.ErrorIs(t, store.Save(&Token{Name: "default"}), ErrInvalidToken)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "correct horse")
	path := filepath.Join(t.TempDir(), "tokens.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(&Token{Name: "default", Value: "ghp_one"}))
	require.NoError(t, store.Save(&Token{Name: "work", Value: "ghp_two"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "ghp_one")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	token, err := reopened.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "ghp_two", token.Value)

	require.NoError(t, reopened.Delete("work"))
	require.NoError(t, reopened.Delete("default"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = reopened.Load("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	t.Setenv(PassphraseEnvVar, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(&Token{Name: "default", Value: "ghp_one"}))

	t.Setenv(PassphraseEnvVar, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Load("default")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnvVar, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "tokens.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Save(&Token{Name: "default", Value: "ghp_one"}))

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "tokens.enc"))
	require.NoError(t, err)
	token, err := reopened.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "ghp_one", token.Value)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(TokenEnvVar, "")
	_, err := store.Load("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	t.Setenv(TokenEnvVar, "ghp_env")
	token, err := store.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "ghp_env", token.Value)

	assert.ErrorIs(t, store.Save(token), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("default"), ErrStoreUnavailable)
}

func TestManagerFallback(t *testing.T) {
	primary := newMemoryStore("primary")
	secondary := newMemoryStore("secondary")
	primary.fail = ErrStoreUnavailable
	m := NewManagerWithStores(primary, secondary)

	source, err := m.Save(&Token{Value: "ghp_abc"})
	require.NoError(t, err)
	assert.Equal(t, "secondary", source)

	token, source, err := m.Load("")
	require.NoError(t, err)
	assert.Equal(t, "secondary", source)
	assert.Equal(t, DefaultTokenName, token.Name)
	assert.False(t, token.LastModified.IsZero())

	require.NoError(t, m.Delete(""))
	_, _, err = m.Load("")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.ErrorIs(t, m.Delete(""), ErrTokenNotFound)
}

func TestManagerPrefersEarlierStore(t *testing.T) {
	first := newMemoryStore("first")
	second := newMemoryStore("second")
	require.NoError(t, second.Save(&Token{Name: "default", Value: "old"}))
	require.NoError(t, first.Save(&Token{Name: "default", Value: "new"}))

	token, source, err := NewManagerWithStores(first, second).Load("default")
	require.NoError(t, err)
	assert.Equal(t, "first", source)
	assert.Equal(t, "new", token.Value)
}

func TestManagerRejectsEmptyToken(t *testing.T) {
	m := NewManagerWithStores(newMemoryStore("mem"))
	_, err := m.Save(&Token{Name: "default"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Save(nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerWithConfigDir(t *testing.T) {
	keyring.MockInitWithError(keyring.ErrUnsupportedPlatform)
	t.Setenv(PassphraseEnvVar, "pass")
	t.Setenv(TokenEnvVar, "")

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	source, err := m.Save(&Token{Value: "ghp_file"})
	require.NoError(t, err)
	assert.Equal(t, "encrypted file", source)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********", Mask("short"))
	assert.Equal(t, "ghp_...wxyz", Mask("ghp_abcdefghijklmnopqrstuvwxyz"))
}
