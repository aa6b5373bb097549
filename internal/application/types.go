package application

import (
	"time"

	"github.com/google/uuid"
)

type Config struct {
	DefaultRole          string
	GrantTTL             time.Duration
	FailedLoginThreshold int
	LockoutDuration      time.Duration
	RequireInvitation    bool
}

type ChallengeResponse struct {
	EtherAddress string `json:"ether_address"`
	Message      string `json:"message"`
}

type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Email          string `json:"email,omitempty"`
	InvitationCode string `json:"invitation_code,omitempty"`
}

type RegisterWalletRequest struct {
	Username       string `json:"username"`
	EtherAddress   string `json:"ether_address"`
	Signature      string `json:"signature"`
	InvitationCode string `json:"invitation_code,omitempty"`
}

type AccountResponse struct {
	AccountID              uuid.UUID  `json:"account_id"`
	Kind                   string     `json:"kind"`
	Username               string     `json:"username"`
	Email                  string     `json:"email,omitempty"`
	EmailConfirmed         bool       `json:"email_confirmed"`
	EtherAddress           string     `json:"ether_address"`
	EtherPreviousAddresses []string   `json:"ether_previous_addresses,omitempty"`
	EtherLoginAddress      string     `json:"ether_login_address,omitempty"`
	Roles                  []string   `json:"roles,omitempty"`
	LastLoginAt            *time.Time `json:"last_login_at,omitempty"`
}

type PasswordLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type WalletLoginRequest struct {
	EtherAddress string `json:"ether_address"`
	Signature    string `json:"signature"`
}

type GrantResponse struct {
	AccountID   uuid.UUID `json:"account_id"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
}

type CreateApiKeyRequest struct {
	Label     string     `json:"label"`
	EndOfLife *time.Time `json:"end_of_life,omitempty"`
}

type ApiKeyCreatedResponse struct {
	KeyID     uuid.UUID  `json:"key_id"`
	Label     string     `json:"label"`
	PlainKey  string     `json:"plain_key"`
	EndOfLife *time.Time `json:"end_of_life,omitempty"`
}

type RoleItem struct {
	RoleID    uuid.UUID `json:"role_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ApiKeyItem struct {
	KeyID     uuid.UUID  `json:"key_id"`
	Label     string     `json:"label"`
	EndOfLife *time.Time `json:"end_of_life,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	Alive     bool       `json:"alive"`
}
