package auth

import (
	"os"
	"strings"
)

// TokenEnv holds an access token supplied through the environment
const TokenEnv = "BUTTERFLIY_ACCESS_TOKEN"

// EnvironmentStore is a read-only TokenStore backed by BUTTERFLIY_ACCESS_TOKEN.
// The same token is served for every profile.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Save is not supported for environment variables
func (e *EnvironmentStore) Save(string, *Token) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Load(string) (*Token, error) {
	value := strings.TrimSpace(os.Getenv(TokenEnv))
	if value == "" {
		return nil, ErrTokenNotFound
	}
	return &Token{AccessToken: value}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(string) bool {
	return strings.TrimSpace(os.Getenv(TokenEnv)) != ""
}
