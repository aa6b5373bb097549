package domain

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const (
	// ChallengeCodeLength is the fixed length of a sign-in challenge code.
	ChallengeCodeLength = 10

	// Web3LoginTokenTTL is how long an unconsumed token stays usable before
	// the maintenance sweep reclaims it.
	Web3LoginTokenTTL = 24 * time.Hour

	// challengeMessagePrefix is part of the wallet signing wire format and
	// must be produced byte-for-byte; external wallets sign the literal string.
	challengeMessagePrefix = "Sign this message for verify your address with Etherna! Code: "
)

// challengeCodeAlphabet has exactly 64 symbols so a random byte masked to
// 6 bits indexes it uniformly.
const challengeCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Web3LoginToken is a one-time sign-in challenge bound to an Ethereum
// address. One live token per address; deleted on successful verification.
type Web3LoginToken struct {
	EventQueue

	ID           uuid.UUID
	EtherAddress string
	Code         string
	CreatedAt    time.Time
}

// NewWeb3LoginToken issues a challenge for a checksum-normalized address
// using the supplied cryptographically secure random source.
func NewWeb3LoginToken(checksumAddress string, random io.Reader, now time.Time) (*Web3LoginToken, error) {
	code, err := NewChallengeCode(random)
	if err != nil {
		return nil, err
	}
	return &Web3LoginToken{
		ID:           uuid.New(),
		EtherAddress: checksumAddress,
		Code:         code,
		CreatedAt:    now,
	}, nil
}

// NewChallengeCode draws a fixed-length code from the challenge alphabet.
func NewChallengeCode(random io.Reader) (string, error) {
	raw := make([]byte, ChallengeCodeLength)
	if _, err := io.ReadFull(random, raw); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	code := make([]byte, ChallengeCodeLength)
	for i, b := range raw {
		code[i] = challengeCodeAlphabet[b&0x3f]
	}
	return string(code), nil
}

// ComposeChallengeMessage builds the exact message a wallet must sign.
func ComposeChallengeMessage(code string) string {
	return challengeMessagePrefix + code
}

// IsExpired reports whether the token has outlived its TTL.
func (t *Web3LoginToken) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) > Web3LoginTokenTTL
}
