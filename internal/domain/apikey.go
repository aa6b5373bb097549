package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxApiKeysPerOwner bounds alive keys per account.
	MaxApiKeysPerOwner = 10
	// MaxApiKeyLabelLength bounds the user-chosen key label.
	MaxApiKeyLabelLength = 25
)

// ApiKey is a long-lived credential usable as an alternate login grant.
// Only the SHA-256 hash of the plaintext is stored; the plaintext is
// generated once, shown once, and never persisted.
type ApiKey struct {
	EventQueue

	ID        uuid.UUID
	KeyHash   string
	Label     string
	EndOfLife *time.Time
	OwnerID   uuid.UUID
	CreatedAt time.Time
}

// NewApiKey builds a key aggregate from a freshly generated plaintext.
func NewApiKey(plainKey, label string, endOfLife *time.Time, owner uuid.UUID, now time.Time) (*ApiKey, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrInvalidInput)
	}
	if len(label) > MaxApiKeyLabelLength {
		return nil, fmt.Errorf("%w: label must be <= %d characters", ErrInvalidInput, MaxApiKeyLabelLength)
	}
	if plainKey == "" {
		return nil, fmt.Errorf("%w: plain key is required", ErrInvalidInput)
	}
	if endOfLife != nil && endOfLife.Before(now) {
		return nil, fmt.Errorf("%w: end of life is in the past", ErrInvalidInput)
	}
	return &ApiKey{
		ID:        uuid.New(),
		KeyHash:   HashApiKey(plainKey),
		Label:     label,
		EndOfLife: endOfLife,
		OwnerID:   owner,
		CreatedAt: now,
	}, nil
}

// HashApiKey computes the stored hash of a plaintext key.
func HashApiKey(plainKey string) string {
	sum := sha256.Sum256([]byte(plainKey))
	return hex.EncodeToString(sum[:])
}

// IsExpired reports whether EndOfLife has passed.
func (k *ApiKey) IsExpired(now time.Time) bool {
	return k.EndOfLife != nil && k.EndOfLife.Before(now)
}

// IsAlive reports whether the key can still authenticate.
func (k *ApiKey) IsAlive(now time.Time) bool {
	return !k.IsExpired(now)
}
