package auth

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/zalando/go-keyring"
)

const keyringService = "stargazers"

// KeyringStore keeps tokens in the system keychain
type KeyringStore struct{}

// NewKeyringStore checks the keychain and fails when it is unavailable
func NewKeyringStore() (*KeyringStore, error) {
	const check = "availability_check"
	if err := keyring.Set(keyringService, check, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, check)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string { return "keyring" }

func (k *KeyringStore) Save(token *Token) error {
	if token == nil || token.Name == "" || token.Value == "" {
		return ErrInvalidToken
	}
	data, err := sonic.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := keyring.Set(keyringService, "token_"+token.Name, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Load(name string) (*Token, error) {
	data, err := keyring.Get(keyringService, "token_"+name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from keyring: %w", err)
	}

	var token Token
	if err := sonic.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

func (k *KeyringStore) Delete(name string) error {
	err := keyring.Delete(keyringService, "token_"+name)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
