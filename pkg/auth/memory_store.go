package auth

import "sync"

// MemoryStore is an in-memory TokenStore for tests and one-shot runs
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]Token)}
}

func (m *MemoryStore) Save(profile string, token *Token) error {
	if profile == "" || token == nil || token.AccessToken == "" {
		return ErrInvalidToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[profile] = *token
	return nil
}

func (m *MemoryStore) Load(profile string) (*Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[profile]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &token, nil
}

func (m *MemoryStore) Delete(profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[profile]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, profile)
	return nil
}

func (m *MemoryStore) Exists(profile string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tokens[profile]
	return ok
}

// Count returns the number of stored tokens
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
