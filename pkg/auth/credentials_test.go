package auth

import (
	"context"
	"path/filepath"
	"testing"

	"butterfliy/pkg/config"
	"butterfliy/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestManagerSaveLoadDelete(t *testing.T) {
	t.Setenv(TokenEnv, "")
	mem := NewMemoryStore()
	m := NewManagerWithStores("default", nil, mem, NewEnvironmentStore())

	require.NoError(t, m.Save("default", "  secret-token  "))
	assert.Equal(t, 1, mem.Count())
	assert.True(t, m.Exists("default"))

	token, err := m.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", token.AccessToken)
	assert.False(t, token.SavedAt.IsZero())

	require.NoError(t, m.Delete("default"))
	assert.False(t, m.Exists("default"))

	_, err = m.Load("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	err = m.Delete("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestManagerRejectsEmptyToken(t *testing.T) {
	m := NewManagerWithStores("default", nil, NewMemoryStore())
	assert.ErrorIs(t, m.Save("default", "   "), ErrInvalidToken)
}

func TestManagerFallsThroughReadOnlyStore(t *testing.T) {
	mem := NewMemoryStore()
	m := NewManagerWithStores("default", nil, NewEnvironmentStore(), mem)

	require.NoError(t, m.Save("work", "abc123"))
	assert.True(t, mem.Exists("work"))
}

func TestManagerOnlyReadOnlyStores(t *testing.T) {
	m := NewManagerWithStores("default", nil, NewEnvironmentStore())
	err := m.Save("default", "abc")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestManagerTokenSource(t *testing.T) {
	t.Setenv(TokenEnv, "")
	mem := NewMemoryStore()
	m := NewManagerWithStores("work", nil, mem, NewEnvironmentStore())

	token, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token, "missing token means unauthenticated requests")

	t.Setenv(TokenEnv, "from-env")
	token, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", token)

	require.NoError(t, m.Save("work", "stored"))
	token, err = m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", token, "earlier stores win")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Token(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewManagerFromConfig(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "test-passphrase")

	log := logger.NewTestLogger()
	m, err := NewManager(&config.AuthConfig{
		Profile:        "ci",
		UseKeyring:     true,
		CredentialFile: filepath.Join(dir, "tokens.enc"),
	}, log)
	require.NoError(t, err)
	assert.Equal(t, "ci", m.Profile())
	require.Len(t, m.stores, 3)
	assert.IsType(t, &KeyringStore{}, m.stores[0])
	assert.IsType(t, &EncryptedFileStore{}, m.stores[1])
	assert.IsType(t, &EnvironmentStore{}, m.stores[2])

	require.NoError(t, m.Save("ci", "kr-token"))
	assert.True(t, log.HasMessage("token saved"))
	assert.True(t, m.stores[0].Exists("ci"))
	assert.False(t, m.stores[1].Exists("ci"))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "********", MaskToken("short"))
	assert.Equal(t, "abcd...wxyz", MaskToken("abcdefghijklmnopqrstuvwxyz"))
}
