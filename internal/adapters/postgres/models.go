package postgres

import (
	"time"

	"github.com/google/uuid"
)

type accountModel struct {
	AccountID          uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey"`
	Kind               string    `gorm:"column:kind"`
	Username           string    `gorm:"column:username"`
	NormalizedUsername string    `gorm:"column:normalized_username"`
	Email              *string   `gorm:"column:email"`
	NormalizedEmail    *string   `gorm:"column:normalized_email"`
	EmailConfirmed     bool      `gorm:"column:email_confirmed"`

	EtherAddress           string `gorm:"column:ether_address"`
	EtherPreviousAddresses string `gorm:"column:ether_previous_addresses;type:jsonb"`

	Roles        string `gorm:"column:roles;type:jsonb"`
	CustomClaims string `gorm:"column:custom_claims;type:jsonb"`

	InvitedByID *uuid.UUID `gorm:"column:invited_by_id"`

	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	SecurityStamp string     `gorm:"column:security_stamp"`

	AccessFailedCount int        `gorm:"column:access_failed_count"`
	LockoutEnd        *time.Time `gorm:"column:lockout_end"`
	Disabled          bool       `gorm:"column:disabled"`

	// Password-variant columns, NULL for wallet accounts.
	PasswordHash           *string `gorm:"column:password_hash"`
	EtherManagedPrivateKey *string `gorm:"column:ether_managed_private_key"`
	EtherLoginAddress      *string `gorm:"column:ether_login_address"`
	TwoFactorEnabled       bool    `gorm:"column:two_factor_enabled"`
	AuthenticatorKey       *string `gorm:"column:authenticator_key"`
	TwoFactorRecoveryCodes *string `gorm:"column:two_factor_recovery_codes;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type accountLoginModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	AccountID   uuid.UUID `gorm:"column:account_id"`
	Provider    string    `gorm:"column:provider"`
	ProviderKey string    `gorm:"column:provider_key"`
	DisplayName string    `gorm:"column:display_name"`
}

func (accountLoginModel) TableName() string { return "account_logins" }

type web3LoginTokenModel struct {
	TokenID      uuid.UUID `gorm:"column:token_id;type:uuid;primaryKey"`
	EtherAddress string    `gorm:"column:ether_address"`
	Code         string    `gorm:"column:code"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (web3LoginTokenModel) TableName() string { return "web3_login_tokens" }

type apiKeyModel struct {
	KeyID     uuid.UUID  `gorm:"column:key_id;type:uuid;primaryKey"`
	KeyHash   string     `gorm:"column:key_hash"`
	Label     string     `gorm:"column:label"`
	EndOfLife *time.Time `gorm:"column:end_of_life"`
	OwnerID   uuid.UUID  `gorm:"column:owner_id"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (apiKeyModel) TableName() string { return "api_keys" }

type invitationModel struct {
	InvitationID uuid.UUID  `gorm:"column:invitation_id;type:uuid;primaryKey"`
	Code         uuid.UUID  `gorm:"column:code"`
	EmitterID    *uuid.UUID `gorm:"column:emitter_id"`
	EndLife      *time.Time `gorm:"column:end_life"`
	IsSingleUse  bool       `gorm:"column:is_single_use"`
	IsFromAdmin  bool       `gorm:"column:is_from_admin"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
}

func (invitationModel) TableName() string { return "invitations" }

type roleModel struct {
	RoleID         uuid.UUID `gorm:"column:role_id;type:uuid;primaryKey"`
	Name           string    `gorm:"column:name"`
	NormalizedName string    `gorm:"column:normalized_name"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (roleModel) TableName() string { return "roles" }
