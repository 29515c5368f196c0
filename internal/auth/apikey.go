package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

const apiKeyBytes = 32

// ErrUnknownKey is returned when an API key matches no configured client.
var ErrUnknownKey = errors.New("unknown API key")

// GenerateAPIKey generates a cryptographically secure API key.
// The key is 32 random bytes, hex-encoded to 64 characters.
func GenerateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate API key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Client is an API caller identified by a bcrypt-hashed key.
type Client struct {
	Name    string
	KeyHash string
}

// KeyStore resolves plaintext API keys to client names. Verified keys are
// remembered by their SHA-256 digest so bcrypt runs once per key.
type KeyStore struct {
	clients  []Client
	verified sync.Map // sha256 hex -> client name
}

// NewKeyStore creates a KeyStore for the given clients.
func NewKeyStore(clients []Client) *KeyStore {
	return &KeyStore{clients: clients}
}

// Enabled reports whether any client is configured.
func (s *KeyStore) Enabled() bool {
	return len(s.clients) > 0
}

// Lookup returns the name of the client owning key, or ErrUnknownKey.
func (s *KeyStore) Lookup(_ context.Context, key string) (string, error) {
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])

	if name, ok := s.verified.Load(digest); ok {
		return name.(string), nil
	}

	for _, c := range s.clients {
		if VerifyAPIKey(c.KeyHash, key) == nil {
			s.verified.Store(digest, c.Name)
			return c.Name, nil
		}
	}
	return "", ErrUnknownKey
}
