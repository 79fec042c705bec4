package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	assert.False(t, store.Exists("default"))
	_, err = store.Load("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Save("default", &Token{AccessToken: "tok"}))
	assert.True(t, store.Exists("default"))

	token, err := store.Load("default")
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)

	require.NoError(t, store.Delete("default"))
	assert.ErrorIs(t, store.Delete("default"), ErrTokenNotFound)
	assert.ErrorIs(t, store.Save("", &Token{AccessToken: "tok"}), ErrInvalidToken)
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv(PassphraseEnv, "correct horse battery staple")
	path := filepath.Join(t.TempDir(), "nested", "tokens.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = store.Load("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Save("default", &Token{AccessToken: "first"}))
	require.NoError(t, store.Save("work", &Token{AccessToken: "second"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "first")
	assert.NotContains(t, string(content), "second")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	token, err := reopened.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "second", token.AccessToken)

	require.NoError(t, reopened.Delete("default"))
	assert.False(t, reopened.Exists("default"))
	assert.True(t, reopened.Exists("work"))

	require.NoError(t, reopened.Delete("work"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is removed with the last token")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	t.Setenv(PassphraseEnv, "one")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save("default", &Token{AccessToken: "tok"}))

	t.Setenv(PassphraseEnv, "two")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Load("default")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	_, err := NewEncryptedFileStore(filepath.Join(dir, "tokens.enc"))
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(TokenEnv, "")
	assert.False(t, store.Exists("any"))
	_, err := store.Load("any")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	t.Setenv(TokenEnv, " env-token ")
	token, err := store.Load("any")
	require.NoError(t, err)
	assert.Equal(t, "env-token", token.AccessToken)

	assert.ErrorIs(t, store.Save("any", &Token{AccessToken: "x"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("any"), ErrStoreUnavailable)
}
