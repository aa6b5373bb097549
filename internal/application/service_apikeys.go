package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etherna/sso/internal/domain"
	"github.com/google/uuid"
)

// CreateApiKey mints a new API key for the account. The plaintext is
// returned exactly once; only its hash is stored.
func (s *Service) CreateApiKey(ctx context.Context, accountID string, req CreateApiKeyRequest) (ApiKeyCreatedResponse, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return ApiKeyCreatedResponse{}, err
	}
	now := s.nowFn()
	alive, err := s.apiKeys.CountAliveByOwner(ctx, account.ID, now)
	if err != nil {
		return ApiKeyCreatedResponse{}, fmt.Errorf("count keys: %w", err)
	}
	if alive >= domain.MaxApiKeysPerOwner {
		return ApiKeyCreatedResponse{}, domain.ErrMaxKeysReached
	}

	plainKey, err := randomHex(s.random, 32)
	if err != nil {
		return ApiKeyCreatedResponse{}, err
	}
	key, err := domain.NewApiKey(plainKey, req.Label, req.EndOfLife, account.ID, now)
	if err != nil {
		return ApiKeyCreatedResponse{}, err
	}
	if err := s.apiKeyStore.Create(ctx, key); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return ApiKeyCreatedResponse{}, fmt.Errorf("%w: label %q already in use", domain.ErrConflict, key.Label)
		}
		return ApiKeyCreatedResponse{}, fmt.Errorf("create api key: %w", err)
	}
	s.logger.InfoContext(ctx, "api key created",
		"module", "application",
		"operation", "create_api_key",
		"outcome", "success",
		"account_id", account.ID,
		"key_id", key.ID,
	)
	return ApiKeyCreatedResponse{
		KeyID:     key.ID,
		Label:     key.Label,
		PlainKey:  plainKey,
		EndOfLife: key.EndOfLife,
	}, nil
}

// ListApiKeys lists the account's keys, never exposing hashes or plaintexts.
func (s *Service) ListApiKeys(ctx context.Context, accountID string) ([]ApiKeyItem, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	keys, err := s.apiKeys.ListByOwner(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	now := s.nowFn()
	items := make([]ApiKeyItem, 0, len(keys))
	for _, key := range keys {
		items = append(items, toApiKeyItem(key, now))
	}
	return items, nil
}

// GetApiKey returns one of the account's keys by id.
func (s *Service) GetApiKey(ctx context.Context, accountID, keyID string) (ApiKeyItem, error) {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return ApiKeyItem{}, err
	}
	id, err := uuid.Parse(keyID)
	if err != nil {
		return ApiKeyItem{}, fmt.Errorf("%w: invalid key id", domain.ErrInvalidFormat)
	}
	key, err := s.apiKeys.GetByID(ctx, account.ID, id)
	if err != nil {
		return ApiKeyItem{}, err
	}
	return toApiKeyItem(key, s.nowFn()), nil
}

// DeleteApiKey revokes one of the account's keys.
func (s *Service) DeleteApiKey(ctx context.Context, accountID, keyID string) error {
	account, err := s.loadAccount(ctx, accountID)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(keyID)
	if err != nil {
		return fmt.Errorf("%w: invalid key id", domain.ErrInvalidFormat)
	}
	key, err := s.apiKeys.GetByID(ctx, account.ID, id)
	if err != nil {
		return err
	}
	if err := s.apiKeyStore.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// ValidateApiKeyGrant authenticates the resource-owner-credentials pair
// (account id, plaintext key). Checks run in a fixed order with hard stops;
// each internal failure kind is logged but callers surface them uniformly.
func (s *Service) ValidateApiKeyGrant(ctx context.Context, accountID, plainKey string) (GrantResponse, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return GrantResponse{}, fmt.Errorf("%w: invalid account id", domain.ErrInvalidFormat)
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return GrantResponse{}, domain.ErrInvalidCredentials
		}
		return GrantResponse{}, fmt.Errorf("load account: %w", err)
	}
	if err := s.checkLockout(ctx, account); err != nil {
		return GrantResponse{}, err
	}
	if !account.CanSignIn() {
		return GrantResponse{}, domain.ErrNotAllowed
	}

	key, err := s.apiKeys.GetByHashAndOwner(ctx, domain.HashApiKey(plainKey), account.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.recordLoginFailure(ctx, account, "api_key_not_found")
			return GrantResponse{}, domain.ErrKeyNotFound
		}
		return GrantResponse{}, fmt.Errorf("load api key: %w", err)
	}
	if key.IsExpired(s.nowFn()) {
		s.recordLoginFailure(ctx, account, "api_key_expired")
		return GrantResponse{}, domain.ErrKeyExpired
	}

	account.RegisterLoginSuccess("api_key", s.nowFn())
	s.clearLockout(ctx, account)
	if err := s.accountStore.Save(ctx, account); err != nil {
		return GrantResponse{}, fmt.Errorf("persist login: %w", err)
	}
	return s.signGrant(account, "api_key")
}

func toApiKeyItem(key *domain.ApiKey, now time.Time) ApiKeyItem {
	return ApiKeyItem{
		KeyID:     key.ID,
		Label:     key.Label,
		EndOfLife: key.EndOfLife,
		CreatedAt: key.CreatedAt,
		Alive:     key.IsAlive(now),
	}
}
