package auth

import (
	"os"
	"time"
)

// TokenEnvVar is the environment variable holding a personal access token
const TokenEnvVar = "GITHUB_PERSONAL_ACCESS_TOKEN"

// EnvironmentStore reads the token from the environment. It is read-only.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Name() string { return "environment" }

func (e *EnvironmentStore) Save(*Token) error {
	return ErrStoreUnavailable
}

// Load returns the environment token under any name
func (e *EnvironmentStore) Load(name string) (*Token, error) {
	value := os.Getenv(TokenEnvVar)
	if value == "" {
		return nil, ErrTokenNotFound
	}
	return &Token{Name: name, Value: value, LastModified: time.Now()}, nil
}

func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}
