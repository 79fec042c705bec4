package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"butterfliy/pkg/config"
	"butterfliy/pkg/logger"
)

// Token is an API access token saved under a profile name
type Token struct {
	AccessToken string    `json:"access_token"`
	SavedAt     time.Time `json:"saved_at"`
}

// TokenStore is the interface for storing and retrieving access tokens
type TokenStore interface {
	// Save stores the token for a profile, replacing any previous one
	Save(profile string, token *Token) error

	// Load gets the token for a profile
	Load(profile string) (*Token, error)

	// Delete removes the token for a profile
	Delete(profile string) error

	// Exists checks if a token is stored for a profile
	Exists(profile string) bool
}

// Errors
var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// Manager handles token storage with fallback mechanisms
type Manager struct {
	stores  []TokenStore
	profile string
	logger  logger.Logger
}

// NewManager creates a manager with the backends the auth config selects:
// keyring (when enabled and available), encrypted file, then environment.
func NewManager(cfg *config.AuthConfig, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	var stores []TokenStore

	if cfg.UseKeyring {
		if keyringStore, err := NewKeyringStore(); err == nil {
			stores = append(stores, keyringStore)
		} else {
			log.WithError(err).Debug("keyring unavailable, using encrypted file")
		}
	}

	if cfg.CredentialFile != "" {
		fileStore, err := NewEncryptedFileStore(cfg.CredentialFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create encrypted store: %w", err)
		}
		stores = append(stores, fileStore)
	}

	stores = append(stores, NewEnvironmentStore())

	return NewManagerWithStores(cfg.Profile, log, stores...), nil
}

// NewManagerWithStores creates a manager over explicit stores, tried in order
func NewManagerWithStores(profile string, log logger.Logger, stores ...TokenStore) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if profile == "" {
		profile = "default"
	}
	return &Manager{stores: stores, profile: profile, logger: log}
}

// Profile returns the profile the manager serves tokens for
func (m *Manager) Profile() string {
	return m.profile
}

// Save stores the token in the first store that accepts it
func (m *Manager) Save(profile, accessToken string) error {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return ErrInvalidToken
	}

	token := &Token{AccessToken: accessToken, SavedAt: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		err := store.Save(profile, token)
		if err == nil {
			m.logger.WithFields(map[string]interface{}{
				"profile": profile,
				"store":   storeName(store),
			}).Debug("token saved")
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to save token: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Load gets the token from the first store that has it
func (m *Manager) Load(profile string) (*Token, error) {
	for _, store := range m.stores {
		token, err := store.Load(profile)
		if err == nil && token != nil {
			return token, nil
		}
		if err != nil && !errors.Is(err, ErrTokenNotFound) {
			m.logger.WithError(err).WithField("store", storeName(store)).Debug("token store failed")
		}
	}
	return nil, fmt.Errorf("%w for profile %s", ErrTokenNotFound, profile)
}

// Delete removes the token from every store that can delete it
func (m *Manager) Delete(profile string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(profile)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete token: %w", lastErr)
	}
	return fmt.Errorf("%w for profile %s", ErrTokenNotFound, profile)
}

// Exists reports whether any store holds a token for the profile
func (m *Manager) Exists(profile string) bool {
	for _, store := range m.stores {
		if store.Exists(profile) {
			return true
		}
	}
	return false
}

// Token implements api.TokenSource for the manager's profile. A missing
// token is not an error; requests are then sent unauthenticated.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token, err := m.Load(m.profile)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", nil
		}
		return "", err
	}
	return token.AccessToken, nil
}

// MaskToken masks all but the first 4 and last 4 characters of a token
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func storeName(store TokenStore) string {
	switch store.(type) {
	case *KeyringStore:
		return "keyring"
	case *EncryptedFileStore:
		return "file"
	case *EnvironmentStore:
		return "environment"
	case *MemoryStore:
		return "memory"
	default:
		return fmt.Sprintf("%T", store)
	}
}
