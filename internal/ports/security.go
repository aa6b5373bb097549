package ports

import (
	"time"

	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// WalletVerifier covers the Ethereum primitives the core needs: checksum
// normalization and ECDSA message-recovery over personal-sign payloads.
type WalletVerifier interface {
	// ChecksumAddress normalizes a hex address to its checksum form.
	ChecksumAddress(address string) (string, error)
	// RecoverAddress recovers the checksum address that signed the given
	// UTF-8 message with an Ethereum personal-message signature.
	RecoverAddress(message, signature string) (string, error)
}

// WalletGenerator derives fresh server-custodied wallets for password accounts.
type WalletGenerator interface {
	GenerateWallet() (privateKeyHex, checksumAddress string, err error)
}

// GrantClaims is the payload of a successful credential validation: a grant
// bound to the account id.
type GrantClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	Username  string    `json:"username"`
	Method    string    `json:"method"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantSigner issues the externally observable token for a granted login.
type GrantSigner interface {
	Sign(claims GrantClaims) (string, error)
	ParseAndValidate(token string) (GrantClaims, error)
	// PublicJWKs exposes the verification keys in JWK form so relying
	// parties can validate grants offline.
	PublicJWKs() ([]map[string]any, error)
}
