package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/etherna/sso/internal/domain"
	"github.com/google/uuid"
)

// RegisterPasswordAccount creates a web2 account. A server-managed wallet is
// derived at registration so the account owns an Ethereum address from the
// start; users never see its private key through this path.
func (s *Service) RegisterPasswordAccount(ctx context.Context, req RegisterRequest) (AccountResponse, error) {
	if err := domain.ValidatePassword(req.Password); err != nil {
		return AccountResponse{}, err
	}
	invitedBy, err := s.redeemInvitation(ctx, req.InvitationCode)
	if err != nil {
		return AccountResponse{}, err
	}
	if err := s.checkUsernameFree(ctx, req.Username); err != nil {
		return AccountResponse{}, err
	}
	if strings.TrimSpace(req.Email) != "" {
		if err := s.checkEmailFree(ctx, req.Email); err != nil {
			return AccountResponse{}, err
		}
	}

	privateKey, address, err := s.walletGen.GenerateWallet()
	if err != nil {
		return AccountResponse{}, fmt.Errorf("derive managed wallet: %w", err)
	}
	stamp, err := randomHex(s.random, 16)
	if err != nil {
		return AccountResponse{}, err
	}

	now := s.nowFn()
	account, err := domain.NewPasswordAccount(req.Username, privateKey, address, stamp, invitedBy, now)
	if err != nil {
		return AccountResponse{}, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AccountResponse{}, fmt.Errorf("hash password: %w", err)
	}
	if err := account.SetPasswordHash(hash); err != nil {
		return AccountResponse{}, err
	}
	if strings.TrimSpace(req.Email) != "" {
		if err := account.SetEmail(req.Email); err != nil {
			return AccountResponse{}, err
		}
	}
	if s.cfg.DefaultRole != "" {
		if err := s.ensureRole(ctx, s.cfg.DefaultRole); err != nil {
			return AccountResponse{}, err
		}
		account.AddRole(s.cfg.DefaultRole)
	}

	if err := s.accountStore.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AccountResponse{}, s.classifyCreateConflict(ctx, account)
		}
		return AccountResponse{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.InfoContext(ctx, "password account registered",
		"module", "application",
		"operation", "register",
		"outcome", "success",
		"account_id", account.ID,
		"kind", account.Kind,
	)
	return toAccountResponse(account), nil
}

// RegisterWalletAccount creates a web3 account from a signed challenge:
// the address becomes the identity, no password is involved.
func (s *Service) RegisterWalletAccount(ctx context.Context, req RegisterWalletRequest) (AccountResponse, error) {
	invitedBy, err := s.redeemInvitation(ctx, req.InvitationCode)
	if err != nil {
		return AccountResponse{}, err
	}
	if err := s.checkUsernameFree(ctx, req.Username); err != nil {
		return AccountResponse{}, err
	}
	address, err := s.consumeChallenge(ctx, req.EtherAddress, req.Signature)
	if err != nil {
		return AccountResponse{}, err
	}
	if _, err := s.accounts.GetByEtherAddress(ctx, address); err == nil {
		return AccountResponse{}, domain.ErrAddressTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return AccountResponse{}, fmt.Errorf("check address: %w", err)
	}

	stamp, err := randomHex(s.random, 16)
	if err != nil {
		return AccountResponse{}, err
	}
	account, err := domain.NewWalletAccount(req.Username, address, stamp, invitedBy, s.nowFn())
	if err != nil {
		return AccountResponse{}, err
	}
	if s.cfg.DefaultRole != "" {
		if err := s.ensureRole(ctx, s.cfg.DefaultRole); err != nil {
			return AccountResponse{}, err
		}
		account.AddRole(s.cfg.DefaultRole)
	}

	if err := s.accountStore.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AccountResponse{}, s.classifyCreateConflict(ctx, account)
		}
		return AccountResponse{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.InfoContext(ctx, "wallet account registered",
		"module", "application",
		"operation", "register_wallet",
		"outcome", "success",
		"account_id", account.ID,
		"ether_address", address,
	)
	return toAccountResponse(account), nil
}

// PasswordLogin validates a username-or-email plus password pair and grants
// a login. All credential failures collapse to ErrInvalidCredentials.
func (s *Service) PasswordLogin(ctx context.Context, req PasswordLoginRequest) (GrantResponse, error) {
	account, err := s.findByUsernameOrEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return GrantResponse{}, domain.ErrInvalidCredentials
		}
		return GrantResponse{}, fmt.Errorf("load account: %w", err)
	}
	if !account.CanSignIn() {
		return GrantResponse{}, domain.ErrNotAllowed
	}
	if err := s.checkLockout(ctx, account); err != nil {
		return GrantResponse{}, err
	}
	if !domain.CanLoginWithPassword(account) {
		s.recordLoginFailure(ctx, account, "password_login_not_viable")
		return GrantResponse{}, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(account.Password.PasswordHash, req.Password); err != nil {
		s.recordLoginFailure(ctx, account, "password_mismatch")
		return GrantResponse{}, domain.ErrInvalidCredentials
	}

	account.RegisterLoginSuccess("password", s.nowFn())
	s.clearLockout(ctx, account)
	if err := s.accountStore.Save(ctx, account); err != nil {
		return GrantResponse{}, fmt.Errorf("persist login: %w", err)
	}
	return s.signGrant(account, "password")
}

// Logout records a logout event for the account.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	account.RegisterLogout(s.nowFn())
	if err := s.accountStore.Save(ctx, account); err != nil {
		return fmt.Errorf("persist logout: %w", err)
	}
	return nil
}

// GetAccount returns the account by id.
func (s *Service) GetAccount(ctx context.Context, accountID string) (AccountResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return AccountResponse{}, err
	}
	return toAccountResponse(account), nil
}

// ChangeUsername renames the account, enforcing global uniqueness.
func (s *Service) ChangeUsername(ctx context.Context, accountID, username string) (AccountResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return AccountResponse{}, err
	}
	if domain.NormalizeUsername(username) != account.NormalizedUsername {
		if err := s.checkUsernameFree(ctx, username); err != nil {
			return AccountResponse{}, err
		}
	}
	if err := account.SetUsername(username); err != nil {
		return AccountResponse{}, err
	}
	if err := s.accountStore.Save(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AccountResponse{}, domain.ErrUsernameTaken
		}
		return AccountResponse{}, fmt.Errorf("persist username: %w", err)
	}
	return toAccountResponse(account), nil
}

// ChangeEmail sets or replaces the optional email, enforcing uniqueness.
// An empty email clears it.
func (s *Service) ChangeEmail(ctx context.Context, accountID, email string) (AccountResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return AccountResponse{}, err
	}
	if strings.TrimSpace(email) == "" {
		account.ClearEmail()
	} else {
		if domain.NormalizeEmail(email) != account.NormalizedEmail {
			if err := s.checkEmailFree(ctx, email); err != nil {
				return AccountResponse{}, err
			}
		}
		if err := account.SetEmail(email); err != nil {
			return AccountResponse{}, err
		}
	}
	if err := s.accountStore.Save(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AccountResponse{}, domain.ErrEmailTaken
		}
		return AccountResponse{}, fmt.Errorf("persist email: %w", err)
	}
	return toAccountResponse(account), nil
}

// ChangePassword replaces the password after verifying the current one,
// then refreshes the security stamp so other sessions drop.
func (s *Service) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Kind != domain.KindPassword {
		return fmt.Errorf("%w: wallet accounts have no password", domain.ErrInvariantViolation)
	}
	if err := s.hasher.Compare(account.Password.PasswordHash, currentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}
	if err := domain.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := account.SetPasswordHash(hash); err != nil {
		return err
	}
	stamp, err := randomHex(s.random, 16)
	if err != nil {
		return err
	}
	account.RefreshSecurityStamp(stamp, s.nowFn())
	if err := s.accountStore.Save(ctx, account); err != nil {
		return fmt.Errorf("persist password: %w", err)
	}
	return nil
}

func (s *Service) loadAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid account id", domain.ErrInvalidFormat)
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// findByUsernameOrEmail resolves a login identifier: username form first,
// then email form.
func (s *Service) findByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.ErrNotFound
	}
	if strings.Contains(identifier, "@") {
		return s.accounts.GetByNormalizedEmail(ctx, domain.NormalizeEmail(identifier))
	}
	return s.accounts.GetByNormalizedUsername(ctx, domain.NormalizeUsername(identifier))
}

func (s *Service) checkUsernameFree(ctx context.Context, username string) error {
	if !domain.ValidUsername(strings.TrimSpace(username)) {
		return fmt.Errorf("%w: invalid username %q", domain.ErrInvalidFormat, username)
	}
	_, err := s.accounts.GetByNormalizedUsername(ctx, domain.NormalizeUsername(username))
	if err == nil {
		return domain.ErrUsernameTaken
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check username: %w", err)
	}
	return nil
}

func (s *Service) checkEmailFree(ctx context.Context, email string) error {
	if !domain.ValidEmail(email) {
		return fmt.Errorf("%w: invalid email %q", domain.ErrInvalidFormat, email)
	}
	_, err := s.accounts.GetByNormalizedEmail(ctx, domain.NormalizeEmail(email))
	if err == nil {
		return domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}
