package nexus

import "sync"

// CredentialProvider supplies the API credential for each request. This
// indirection lets the hosting surface rotate the credential at runtime
// without rebuilding the client.
type CredentialProvider interface {
	APIKey() string
}

// StaticCredential is a fixed API key.
type StaticCredential string

// APIKey returns the key.
func (s StaticCredential) APIKey() string { return string(s) }

// Keyring is a hot-swappable credential. Safe for concurrent use.
type Keyring struct {
	mu  sync.RWMutex
	key string
}

// NewKeyring creates a Keyring holding key.
func NewKeyring(key string) *Keyring {
	return &Keyring{key: key}
}

// APIKey returns the current key.
func (k *Keyring) APIKey() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key
}

// Rotate replaces the key; requests in flight keep the key they started
// with, subsequent requests use the new one.
func (k *Keyring) Rotate(key string) {
	k.mu.Lock()
	k.key = key
	k.mu.Unlock()
}
