package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/etherna/sso/internal/application"
)

// Sweeper periodically reclaims expired challenge tokens and invitations.
// Sweeps are idempotent, so overlapping instances across replicas are safe.
type Sweeper struct {
	logger   *slog.Logger
	service  *application.Service
	interval time.Duration
}

// NewSweeper constructs the maintenance loop with a sane default interval.
func NewSweeper(logger *slog.Logger, service *application.Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		logger:   logger,
		service:  service,
		interval: interval,
	}
}

// Run executes the periodic sweep loop until context cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	tokens, err := s.service.DeleteExpiredWeb3LoginTokens(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "web3 token sweep failed",
			"module", "maintenance.sweeper",
			"layer", "adapter",
			"operation", "sweep_tokens",
			"outcome", "failure",
			"error", err,
		)
	}

	invitations, err := s.service.DeleteExpiredInvitations(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "invitation sweep failed",
			"module", "maintenance.sweeper",
			"layer", "adapter",
			"operation", "sweep_invitations",
			"outcome", "failure",
			"error", err,
		)
	}

	if tokens > 0 || invitations > 0 {
		s.logger.InfoContext(ctx, "maintenance sweep completed",
			"module", "maintenance.sweeper",
			"layer", "adapter",
			"operation", "sweep_once",
			"outcome", "success",
			"tokens_deleted", tokens,
			"invitations_deleted", invitations,
		)
	}
}
