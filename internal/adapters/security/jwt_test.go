package security

import (
	"encoding/base64"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/etherna/sso/internal/ports"
)

func TestJWTSignAndParseRoundtrip(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	claims := ports.GrantClaims{
		AccountID: uuid.New(),
		Username:  "alice_01",
		Method:    "password",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	token, err := signer.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	parsed, err := signer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.AccountID != claims.AccountID {
		t.Fatalf("account id = %v, want %v", parsed.AccountID, claims.AccountID)
	}
	if parsed.Username != claims.Username || parsed.Method != claims.Method {
		t.Fatalf("claims = %+v, want %+v", parsed, claims)
	}
	if !parsed.ExpiresAt.Equal(claims.ExpiresAt) {
		t.Fatalf("expiry = %v, want %v", parsed.ExpiresAt, claims.ExpiresAt)
	}
}

func TestJWTPublicJWKs(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	keys, err := signer.PublicJWKs()
	if err != nil {
		t.Fatalf("public jwks: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("key count = %d, want 1", len(keys))
	}
	jwk := keys[0]
	if jwk["kid"] != "test-key-1" || jwk["kty"] != "RSA" || jwk["alg"] != "RS256" || jwk["use"] != "sig" {
		t.Fatalf("jwk header fields = %v", jwk)
	}

	rawN, err := base64.RawURLEncoding.DecodeString(jwk["n"].(string))
	if err != nil {
		t.Fatalf("decode modulus: %v", err)
	}
	if n := new(big.Int).SetBytes(rawN); n.Cmp(signer.publicKey.N) != 0 {
		t.Fatalf("modulus does not match the signing key")
	}
	rawE, err := base64.RawURLEncoding.DecodeString(jwk["e"].(string))
	if err != nil {
		t.Fatalf("decode exponent: %v", err)
	}
	if e := new(big.Int).SetBytes(rawE); e.Int64() != int64(signer.publicKey.E) {
		t.Fatalf("exponent = %v, want %d", e, signer.publicKey.E)
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Now().UTC()
	token, err := signer.Sign(ports.GrantClaims{
		AccountID: uuid.New(),
		Username:  "alice_01",
		Method:    "password",
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(token); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}

func TestJWTRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	signer, err := NewEphemeralJWTSigner("test-key-1")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	other, err := NewEphemeralJWTSigner("test-key-2")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	now := time.Now().UTC()
	token, err := other.Sign(ports.GrantClaims{
		AccountID: uuid.New(),
		Username:  "alice_01",
		Method:    "password",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := signer.ParseAndValidate(token); err == nil {
		t.Fatalf("token signed by another key must be rejected")
	}
	if _, err := signer.ParseAndValidate("not-a-token"); err == nil {
		t.Fatalf("garbage must be rejected")
	}
	tampered := token[:strings.LastIndex(token, ".")] + ".AAAA"
	if _, err := signer.ParseAndValidate(tampered); err == nil {
		t.Fatalf("tampered signature must be rejected")
	}
}
