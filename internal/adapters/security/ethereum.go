package security

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EthereumVerifier implements address normalization and personal-sign
// recovery over secp256k1 signatures.
type EthereumVerifier struct{}

func NewEthereumVerifier() *EthereumVerifier {
	return &EthereumVerifier{}
}

// ChecksumAddress validates a hex address and returns its EIP-55 checksum form.
func (v *EthereumVerifier) ChecksumAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid ethereum address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// RecoverAddress recovers the checksum address that produced an Ethereum
// personal-message signature over the given UTF-8 message. Wallets emit the
// recovery id as 27/28; it is normalized to 0/1 before recovery.
func (v *EthereumVerifier) RecoverAddress(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "0x"))
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return "", errors.New("invalid signature recovery id")
	}

	digest := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// EthereumWalletGenerator derives fresh server-custodied wallets.
type EthereumWalletGenerator struct{}

func NewEthereumWalletGenerator() *EthereumWalletGenerator {
	return &EthereumWalletGenerator{}
}

// GenerateWallet creates a new secp256k1 keypair and returns the hex-encoded
// private key with its checksum address.
func (g *EthereumWalletGenerator) GenerateWallet() (string, string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate key: %w", err)
	}
	privateKeyHex := hex.EncodeToString(crypto.FromECDSA(key))
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	return privateKeyHex, address, nil
}
