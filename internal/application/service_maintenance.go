package application

import (
	"context"
	"fmt"

	"github.com/etherna/sso/internal/domain"
)

// DeleteExpiredWeb3LoginTokens reclaims challenge tokens past their TTL.
func (s *Service) DeleteExpiredWeb3LoginTokens(ctx context.Context) (int64, error) {
	cutoff := s.nowFn().Add(-domain.Web3LoginTokenTTL)
	deleted, err := s.tokens.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep web3 login tokens: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "expired web3 login tokens reclaimed",
			"module", "application",
			"operation", "sweep_tokens",
			"outcome", "success",
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// DeleteExpiredInvitations reclaims invitations past their end of life.
func (s *Service) DeleteExpiredInvitations(ctx context.Context) (int64, error) {
	deleted, err := s.invitations.DeleteExpired(ctx, s.nowFn())
	if err != nil {
		return 0, fmt.Errorf("sweep invitations: %w", err)
	}
	if deleted > 0 {
		s.logger.InfoContext(ctx, "expired invitations reclaimed",
			"module", "application",
			"operation", "sweep_invitations",
			"outcome", "success",
			"deleted", deleted,
		)
	}
	return deleted, nil
}
