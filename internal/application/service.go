package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/etherna/sso/internal/domain"
	"github.com/etherna/sso/internal/events"
	"github.com/etherna/sso/internal/ports"
	"github.com/google/uuid"
)

type Service struct {
	cfg    Config
	logger *slog.Logger

	accounts     ports.AccountRepository
	accountStore *events.Store[*domain.Account]
	apiKeys      ports.ApiKeyRepository
	apiKeyStore  *events.Store[*domain.ApiKey]
	tokens       ports.Web3LoginTokenRepository
	invitations  ports.InvitationRepository
	roles        ports.RoleRepository
	lockouts     ports.LockoutStore

	hasher    ports.PasswordHasher
	wallet    ports.WalletVerifier
	walletGen ports.WalletGenerator
	grants    ports.GrantSigner

	random io.Reader
	nowFn  func() time.Time
}

type Dependencies struct {
	Config      Config
	Logger      *slog.Logger
	Accounts    ports.AccountRepository
	ApiKeys     ports.ApiKeyRepository
	Tokens      ports.Web3LoginTokenRepository
	Invitations ports.InvitationRepository
	Roles       ports.RoleRepository
	Lockouts    ports.LockoutStore
	Hasher      ports.PasswordHasher
	Wallet      ports.WalletVerifier
	WalletGen   ports.WalletGenerator
	Grants      ports.GrantSigner
	Dispatcher  *events.Dispatcher
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:          deps.Config,
		logger:       logger,
		accounts:     deps.Accounts,
		accountStore: events.NewStore[*domain.Account](deps.Accounts, deps.Dispatcher),
		apiKeys:      deps.ApiKeys,
		apiKeyStore:  events.NewStore[*domain.ApiKey](deps.ApiKeys, deps.Dispatcher),
		tokens:       deps.Tokens,
		invitations:  deps.Invitations,
		roles:        deps.Roles,
		lockouts:     deps.Lockouts,
		hasher:       deps.Hasher,
		wallet:       deps.Wallet,
		walletGen:    deps.WalletGen,
		grants:       deps.Grants,
		random:       rand.Reader,
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
}

// signGrant issues the observable output of a successful credential
// validation: a token bound to the account id.
func (s *Service) signGrant(account *domain.Account, method string) (GrantResponse, error) {
	now := s.nowFn()
	token, err := s.grants.Sign(ports.GrantClaims{
		AccountID: account.ID,
		Username:  account.Username,
		Method:    method,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.GrantTTL),
	})
	if err != nil {
		return GrantResponse{}, fmt.Errorf("sign grant: %w", err)
	}
	return GrantResponse{
		AccountID:   account.ID,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.GrantTTL.Seconds()),
	}, nil
}

// ValidateGrant parses and validates a signed grant token.
func (s *Service) ValidateGrant(_ context.Context, raw string) (ports.GrantClaims, error) {
	claims, err := s.grants.ParseAndValidate(raw)
	if err != nil {
		return ports.GrantClaims{}, fmt.Errorf("%w: %v", domain.ErrInvalidCredentials, err)
	}
	return claims, nil
}

// GrantKeys returns the public verification keys for issued grants, in JWK
// form for the discovery endpoint.
func (s *Service) GrantKeys(_ context.Context) ([]map[string]any, error) {
	keys, err := s.grants.PublicJWKs()
	if err != nil {
		return nil, fmt.Errorf("export grant keys: %w", err)
	}
	return keys, nil
}

// recordLoginFailure updates both the aggregate counter and the cache-backed
// lockout window, then logs the internal failure kind.
func (s *Service) recordLoginFailure(ctx context.Context, account *domain.Account, reason string) {
	now := s.nowFn()
	account.RegisterLoginFailure(reason, now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
	if err := s.accountStore.Save(ctx, account); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist login failure",
			"module", "application",
			"operation", "record_login_failure",
			"outcome", "failure",
			"account_id", account.ID,
			"error", err,
		)
	}
	_, _ = s.lockouts.RecordFailure(ctx, lockoutKey(account.ID), now, s.cfg.FailedLoginThreshold, s.cfg.LockoutDuration)
	s.logger.InfoContext(ctx, "login attempt rejected",
		"module", "application",
		"operation", "login",
		"outcome", "rejected",
		"account_id", account.ID,
		"reason", reason,
	)
}

// checkLockout consults the cache-backed lockout window and the aggregate's
// own lockout end, whichever is stricter.
func (s *Service) checkLockout(ctx context.Context, account *domain.Account) error {
	now := s.nowFn()
	if account.IsLockedOut(now) {
		return domain.ErrLockedOut
	}
	state, err := s.lockouts.Get(ctx, lockoutKey(account.ID))
	if err == nil && state.LockedUntil != nil && state.LockedUntil.After(now) {
		return domain.ErrLockedOut
	}
	return nil
}

func (s *Service) clearLockout(ctx context.Context, account *domain.Account) {
	_ = s.lockouts.Clear(ctx, lockoutKey(account.ID))
}

// redeemInvitation validates and consumes an invitation code when the
// deployment requires one. Single-use invitations are deleted on redemption.
func (s *Service) redeemInvitation(ctx context.Context, code string) (*uuid.UUID, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		if s.cfg.RequireInvitation {
			return nil, domain.ErrInvitationRequired
		}
		return nil, nil
	}
	parsed, err := uuid.Parse(code)
	if err != nil {
		return nil, domain.ErrInvitationInvalid
	}
	invitation, err := s.invitations.GetByCode(ctx, parsed)
	if err != nil {
		return nil, domain.ErrInvitationInvalid
	}
	if invitation.IsExpired(s.nowFn()) {
		return nil, domain.ErrInvitationInvalid
	}
	if invitation.IsSingleUse {
		if err := s.invitations.Delete(ctx, invitation); err != nil {
			return nil, fmt.Errorf("consume invitation: %w", err)
		}
	}
	return invitation.EmitterID, nil
}

// ensureRole resolves a role by name, creating it on first use so account
// role sets only ever reference known roles. Concurrent first-use creates
// collapse onto the winner's row.
func (s *Service) ensureRole(ctx context.Context, name string) error {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	if normalized == "" {
		return nil
	}
	if _, err := s.roles.GetByNormalizedName(ctx, normalized); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("resolve role: %w", err)
	}
	role, err := domain.NewRole(name, s.nowFn())
	if err != nil {
		return err
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil
		}
		return fmt.Errorf("create role: %w", err)
	}
	s.logger.InfoContext(ctx, "role created",
		"module", "application",
		"operation", "ensure_role",
		"outcome", "success",
		"role", role.Name,
	)
	return nil
}

// ListRoles returns every role known to the deployment.
func (s *Service) ListRoles(ctx context.Context) ([]RoleItem, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	items := make([]RoleItem, 0, len(roles))
	for _, role := range roles {
		items = append(items, RoleItem{
			RoleID:    role.ID,
			Name:      role.Name,
			CreatedAt: role.CreatedAt,
		})
	}
	return items, nil
}

// classifyCreateConflict names a unique-index violation raised by an account
// insert. The pre-insert checks cover the common cases, so a violation here
// means a concurrent writer won; look up which index it took.
func (s *Service) classifyCreateConflict(ctx context.Context, account *domain.Account) error {
	if _, err := s.accounts.GetByNormalizedUsername(ctx, account.NormalizedUsername); err == nil {
		return domain.ErrUsernameTaken
	}
	if account.NormalizedEmail != "" {
		if _, err := s.accounts.GetByNormalizedEmail(ctx, account.NormalizedEmail); err == nil {
			return domain.ErrEmailTaken
		}
	}
	if account.EtherAddress != "" {
		if _, err := s.accounts.GetByEtherAddress(ctx, account.EtherAddress); err == nil {
			return domain.ErrAddressTaken
		}
	}
	return domain.ErrConflict
}

func lockoutKey(accountID uuid.UUID) string {
	return "login:" + accountID.String()
}

func randomHex(random io.Reader, bytesLen int) (string, error) {
	raw := make([]byte, bytesLen)
	if _, err := io.ReadFull(random, raw); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func toAccountResponse(account *domain.Account) AccountResponse {
	resp := AccountResponse{
		AccountID:              account.ID,
		Kind:                   string(account.Kind),
		Username:               account.Username,
		Email:                  account.Email,
		EmailConfirmed:         account.EmailConfirmed,
		EtherAddress:           account.EtherAddress,
		EtherPreviousAddresses: account.EtherPreviousAddresses,
		Roles:                  account.Roles,
		LastLoginAt:            account.LastLoginAt,
	}
	if account.Kind == domain.KindPassword {
		resp.EtherLoginAddress = account.Password.EtherLoginAddress
	}
	return resp
}
