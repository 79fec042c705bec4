// Package auth stores API access tokens per profile.
//
// Backends, tried in order by Manager:
//   - KeyringStore: the system keychain via zalando/go-keyring
//   - EncryptedFileStore: AES-GCM file with a PBKDF2-derived key
//   - EnvironmentStore: BUTTERFLIY_ACCESS_TOKEN, read-only
//
// Manager implements api.TokenSource. Obtaining tokens (login, refresh) is
// out of scope; tokens are entered with `butterfliy token set`.
package auth
