package domain_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/etherna/sso/internal/domain"
)

func TestComposeChallengeMessage(t *testing.T) {
	t.Parallel()

	// External wallets sign this literal string; the prefix is wire format.
	got := domain.ComposeChallengeMessage("AbC123-_xY")
	want := "Sign this message for verify your address with Etherna! Code: AbC123-_xY"
	if got != want {
		t.Fatalf("challenge message = %q, want %q", got, want)
	}
}

func TestNewChallengeCode(t *testing.T) {
	t.Parallel()

	t.Run("deterministic from source", func(t *testing.T) {
		t.Parallel()
		// 0x00 indexes the first alphabet symbol, 0x3f the last, and the
		// high two bits are masked off.
		raw := []byte{0x00, 0x01, 0x19, 0x1a, 0x33, 0x34, 0x3d, 0x3e, 0x3f, 0xc0}
		code, err := domain.NewChallengeCode(bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("new challenge code: %v", err)
		}
		if want := "ABZaz09-_A"; code != want {
			t.Fatalf("code = %q, want %q", code, want)
		}
	})

	t.Run("length and alphabet", func(t *testing.T) {
		t.Parallel()
		code, err := domain.NewChallengeCode(bytes.NewReader(bytes.Repeat([]byte{0xff}, 32)))
		if err != nil {
			t.Fatalf("new challenge code: %v", err)
		}
		if len(code) != domain.ChallengeCodeLength {
			t.Fatalf("code length = %d, want %d", len(code), domain.ChallengeCodeLength)
		}
		const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
		for _, r := range code {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("code %q contains symbol %q outside the alphabet", code, r)
			}
		}
	})

	t.Run("short random source", func(t *testing.T) {
		t.Parallel()
		if _, err := domain.NewChallengeCode(bytes.NewReader([]byte{0x01})); err == nil {
			t.Fatalf("expected error on exhausted random source")
		}
	})
}

func TestWeb3LoginTokenExpiry(t *testing.T) {
	t.Parallel()

	token, err := domain.NewWeb3LoginToken("0x5AEDA56215b167893e80B4fE645BA6d5Bab767DE", bytes.NewReader(make([]byte, 16)), testNow)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}

	if token.IsExpired(testNow.Add(domain.Web3LoginTokenTTL)) {
		t.Fatalf("token must still be valid exactly at the TTL boundary")
	}
	if !token.IsExpired(testNow.Add(domain.Web3LoginTokenTTL + time.Second)) {
		t.Fatalf("token must expire past the TTL")
	}
}
