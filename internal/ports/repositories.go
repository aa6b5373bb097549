package ports

import (
	"context"
	"time"

	"github.com/etherna/sso/internal/domain"
	"github.com/google/uuid"
)

// AccountRepository defines persistence for the identity aggregate.
// Uniqueness (address, normalized email/username, provider+key pairs) is
// enforced by the store's unique indexes; Create/Update surface reactive
// rejections as domain.ErrConflict.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	// Update persists the given aggregates as one unit of work.
	Update(ctx context.Context, accounts ...*domain.Account) error
	Delete(ctx context.Context, account *domain.Account) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByNormalizedUsername(ctx context.Context, normalized string) (*domain.Account, error)
	GetByNormalizedEmail(ctx context.Context, normalized string) (*domain.Account, error)
	GetByEtherAddress(ctx context.Context, checksumAddress string) (*domain.Account, error)
	GetByEtherLoginAddress(ctx context.Context, checksumAddress string) (*domain.Account, error)
	GetByLogin(ctx context.Context, provider, providerKey string) (*domain.Account, error)

	// SetLastLogin records login bookkeeping without rewriting the aggregate.
	SetLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Web3LoginTokenRepository stores one live challenge token per address.
// Create returns domain.ErrConflict when a concurrent issue won the unique
// index race; callers must then fetch the existing token.
type Web3LoginTokenRepository interface {
	Create(ctx context.Context, token *domain.Web3LoginToken) error
	GetByAddress(ctx context.Context, checksumAddress string) (*domain.Web3LoginToken, error)
	DeleteByAddress(ctx context.Context, checksumAddress string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ApiKeyRepository persists API-key credentials.
type ApiKeyRepository interface {
	Create(ctx context.Context, key *domain.ApiKey) error
	Update(ctx context.Context, keys ...*domain.ApiKey) error
	Delete(ctx context.Context, key *domain.ApiKey) error

	GetByID(ctx context.Context, owner uuid.UUID, id uuid.UUID) (*domain.ApiKey, error)
	GetByHashAndOwner(ctx context.Context, keyHash string, owner uuid.UUID) (*domain.ApiKey, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*domain.ApiKey, error)
	CountAliveByOwner(ctx context.Context, owner uuid.UUID, now time.Time) (int, error)
}

// InvitationRepository persists registration invitations.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *domain.Invitation) error
	GetByCode(ctx context.Context, code uuid.UUID) (*domain.Invitation, error)
	Delete(ctx context.Context, invitation *domain.Invitation) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RoleRepository persists roles referenced by accounts.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByNormalizedName(ctx context.Context, normalized string) (*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
}
