package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/etherna/sso/internal/domain"
)

// RetrieveChallenge returns the message a wallet must sign to authenticate
// the given address. While a live token exists the same message is returned;
// an expired token is replaced. Losing a concurrent create race falls back
// to the winner's token, so concurrent requests for one address converge on
// a single challenge.
func (s *Service) RetrieveChallenge(ctx context.Context, etherAddress string) (ChallengeResponse, error) {
	address, err := s.wallet.ChecksumAddress(etherAddress)
	if err != nil {
		return ChallengeResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	now := s.nowFn()

	token, err := s.tokens.GetByAddress(ctx, address)
	switch {
	case err == nil && !token.IsExpired(now):
		return ChallengeResponse{
			EtherAddress: address,
			Message:      domain.ComposeChallengeMessage(token.Code),
		}, nil
	case err == nil:
		if err := s.tokens.DeleteByAddress(ctx, address); err != nil {
			return ChallengeResponse{}, fmt.Errorf("replace expired challenge: %w", err)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return ChallengeResponse{}, fmt.Errorf("load challenge: %w", err)
	}

	fresh, err := domain.NewWeb3LoginToken(address, s.random, now)
	if err != nil {
		return ChallengeResponse{}, err
	}
	if err := s.tokens.Create(ctx, fresh); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			existing, getErr := s.tokens.GetByAddress(ctx, address)
			if getErr != nil {
				return ChallengeResponse{}, fmt.Errorf("load winning challenge: %w", getErr)
			}
			fresh = existing
		} else {
			return ChallengeResponse{}, fmt.Errorf("store challenge: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "web3 challenge issued",
		"module", "application",
		"operation", "retrieve_challenge",
		"outcome", "success",
		"ether_address", address,
	)
	return ChallengeResponse{
		EtherAddress: address,
		Message:      domain.ComposeChallengeMessage(fresh.Code),
	}, nil
}

// consumeChallenge verifies a signature against the live challenge for the
// address and deletes the token on success. The recovered signer must match
// the claimed address exactly.
func (s *Service) consumeChallenge(ctx context.Context, etherAddress, signature string) (string, error) {
	address, err := s.wallet.ChecksumAddress(etherAddress)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}

	token, err := s.tokens.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrChallengeNotFound
		}
		return "", fmt.Errorf("load challenge: %w", err)
	}
	if token.IsExpired(s.nowFn()) {
		return "", domain.ErrChallengeNotFound
	}

	recovered, err := s.wallet.RecoverAddress(domain.ComposeChallengeMessage(token.Code), signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSignatureMismatch, err)
	}
	if recovered != address {
		return "", domain.ErrSignatureMismatch
	}

	if err := s.tokens.DeleteByAddress(ctx, address); err != nil {
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	return address, nil
}

// WalletLogin validates a signed challenge and grants a login. The address
// may belong to a wallet account or be the verified login wallet of a
// password account.
func (s *Service) WalletLogin(ctx context.Context, req WalletLoginRequest) (GrantResponse, error) {
	address, err := s.consumeChallenge(ctx, req.EtherAddress, req.Signature)
	if err != nil {
		return GrantResponse{}, err
	}

	account, err := s.accounts.GetByEtherAddress(ctx, address)
	if errors.Is(err, domain.ErrNotFound) {
		account, err = s.accounts.GetByEtherLoginAddress(ctx, address)
	}
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
	if !domain.CanLoginWithWallet(account) || account.LoginAddress() != address {
		s.recordLoginFailure(ctx, account, "wallet_not_linked")
		return GrantResponse{}, domain.ErrInvalidCredentials
	}

	account.RegisterLoginSuccess("web3", s.nowFn())
	s.clearLockout(ctx, account)
	if err := s.accountStore.Save(ctx, account); err != nil {
		return GrantResponse{}, fmt.Errorf("persist login: %w", err)
	}
	return s.signGrant(account, "web3")
}

// LinkWallet binds a verified externally owned wallet to a password account
// as an alternate login method.
func (s *Service) LinkWallet(ctx context.Context, accountID string, req WalletLoginRequest) (AccountResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return AccountResponse{}, err
	}
	address, err := s.consumeChallenge(ctx, req.EtherAddress, req.Signature)
	if err != nil {
		return AccountResponse{}, err
	}
	if err := account.SetEtherLoginAddress(address); err != nil {
		return AccountResponse{}, err
	}
	if err := s.accountStore.Save(ctx, account); err != nil {
		return AccountResponse{}, fmt.Errorf("persist wallet link: %w", err)
	}
	s.logger.InfoContext(ctx, "login wallet linked",
		"module", "application",
		"operation", "link_wallet",
		"outcome", "success",
		"account_id", account.ID,
		"ether_address", address,
	)
	return toAccountResponse(account), nil
}

// UnlinkWallet removes the verified login wallet from a password account.
func (s *Service) UnlinkWallet(ctx context.Context, accountID string) (AccountResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return AccountResponse{}, err
	}
	if err := account.RemoveEtherLoginAddress(); err != nil {
		return AccountResponse{}, err
	}
	if err := s.accountStore.Save(ctx, account); err != nil {
		return AccountResponse{}, fmt.Errorf("persist wallet unlink: %w", err)
	}
	return toAccountResponse(account), nil
}

// UpgradeToWalletAccount converts a password account with a verified login
// wallet into a wallet account. The conversion mutates the single aggregate
// in place and is persisted as one write, so a crash leaves the account in
// exactly one of the two variants.
func (s *Service) UpgradeToWalletAccount(ctx context.Context, accountID string, req WalletLoginRequest) (AccountResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return AccountResponse{}, err
	}
	address, err := s.consumeChallenge(ctx, req.EtherAddress, req.Signature)
	if err != nil {
		return AccountResponse{}, err
	}
	if account.Kind != domain.KindPassword {
		return AccountResponse{}, fmt.Errorf("%w: account is already a wallet account", domain.ErrInvariantViolation)
	}
	if account.Password.EtherLoginAddress != address {
		return AccountResponse{}, fmt.Errorf("%w: signature does not match the linked login wallet", domain.ErrSignatureMismatch)
	}
	if err := account.UpgradeToWallet(s.nowFn()); err != nil {
		return AccountResponse{}, err
	}
	if err := s.accountStore.Save(ctx, account); err != nil {
		return AccountResponse{}, fmt.Errorf("persist upgrade: %w", err)
	}
	s.logger.InfoContext(ctx, "account upgraded to web3",
		"module", "application",
		"operation", "upgrade_to_wallet",
		"outcome", "success",
		"account_id", account.ID,
		"ether_address", address,
	)
	return toAccountResponse(account), nil
}

// ChangeWalletAddress rotates a wallet account's canonical address after
// proof of ownership of the new one. The old address stays in the history
// so downstream claims keep resolving it.
func (s *Service) ChangeWalletAddress(ctx context.Context, accountID string, req WalletLoginRequest) (AccountResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return AccountResponse{}, err
	}
	if account.Kind != domain.KindWallet {
		return AccountResponse{}, fmt.Errorf("%w: only wallet accounts can rotate their address", domain.ErrInvariantViolation)
	}
	address, err := s.consumeChallenge(ctx, req.EtherAddress, req.Signature)
	if err != nil {
		return AccountResponse{}, err
	}
	if address != account.EtherAddress {
		if _, err := s.accounts.GetByEtherAddress(ctx, address); err == nil {
			return AccountResponse{}, domain.ErrAddressTaken
		} else if !errors.Is(err, domain.ErrNotFound) {
			return AccountResponse{}, fmt.Errorf("check address: %w", err)
		}
	}
	stamp, err := randomHex(s.random, 16)
	if err != nil {
		return AccountResponse{}, err
	}
	if err := account.ChangeEtherAddress(address, stamp, s.nowFn()); err != nil {
		return AccountResponse{}, err
	}
	if err := s.accountStore.Save(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return AccountResponse{}, domain.ErrAddressTaken
		}
		return AccountResponse{}, fmt.Errorf("persist address change: %w", err)
	}
	s.logger.InfoContext(ctx, "wallet address rotated",
		"module", "application",
		"operation", "change_wallet_address",
		"outcome", "success",
		"account_id", account.ID,
		"ether_address", address,
	)
	return toAccountResponse(account), nil
}

// DeleteAccountByWallet deletes a wallet account after proof of address
// ownership via a signed challenge.
func (s *Service) DeleteAccountByWallet(ctx context.Context, req WalletLoginRequest) error {
	address, err := s.consumeChallenge(ctx, req.EtherAddress, req.Signature)
	if err != nil {
		return err
	}
	account, err := s.accounts.GetByEtherAddress(ctx, address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("load account: %w", err)
	}
	if account.Kind != domain.KindWallet {
		return fmt.Errorf("%w: only wallet accounts can be deleted by signature", domain.ErrNotAllowed)
	}
	if err := s.accountStore.Delete(ctx, account); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	s.logger.InfoContext(ctx, "account deleted by wallet proof",
		"module", "application",
		"operation", "delete_account_by_wallet",
		"outcome", "success",
		"account_id", account.ID,
	)
	return nil
}
