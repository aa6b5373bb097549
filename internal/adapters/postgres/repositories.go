package postgres

import (
	"errors"

	"github.com/etherna/sso/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Accounts    ports.AccountRepository
	Tokens      ports.Web3LoginTokenRepository
	ApiKeys     ports.ApiKeyRepository
	Invitations ports.InvitationRepository
	Roles       ports.RoleRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Accounts:    &accountRepository{db: db},
		Tokens:      &tokenRepository{db: db},
		ApiKeys:     &apiKeyRepository{db: db},
		Invitations: &invitationRepository{db: db},
		Roles:       &roleRepository{db: db},
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
