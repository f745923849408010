package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// MinKeyBytes is the shortest HMAC key accepted by any provider.
const MinKeyBytes = 32

// KeyProvider supplies the symmetric key used to sign and verify tokens.
// Implementations must be safe for concurrent use.
type KeyProvider interface {
	SigningKey() []byte
}

// EphemeralKeyProvider holds a random key generated once at construction.
// The key lives only in memory: tokens do not survive a restart and cannot be
// verified by another process.
type EphemeralKeyProvider struct {
	key []byte
}

// NewEphemeralKeyProvider generates a fresh random key.
func NewEphemeralKeyProvider() (*EphemeralKeyProvider, error) {
	key := make([]byte, MinKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &EphemeralKeyProvider{key: key}, nil
}

func (p *EphemeralKeyProvider) SigningKey() []byte { return p.key }

// StaticKeyProvider serves a key supplied by configuration, letting several
// instances of a service verify each other's tokens.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider decodes a hex-encoded key of at least MinKeyBytes.
func NewStaticKeyProvider(hexKey string) (*StaticKeyProvider, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("signing key is not valid hex: %w", err)
	}
	if len(key) < MinKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinKeyBytes, len(key))
	}
	return &StaticKeyProvider{key: key}, nil
}

func (p *StaticKeyProvider) SigningKey() []byte { return p.key }

// NewKeyProvider returns a StaticKeyProvider when hexKey is set and an
// EphemeralKeyProvider otherwise.
func NewKeyProvider(hexKey string) (KeyProvider, error) {
	if hexKey != "" {
		return NewStaticKeyProvider(hexKey)
	}
	return NewEphemeralKeyProvider()
}

// GenerateHexKey returns a random key suitable for NewStaticKeyProvider.
func GenerateHexKey() (string, error) {
	p, err := NewEphemeralKeyProvider()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(p.key), nil
}
