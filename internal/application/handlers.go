package application

import (
	"context"
	"log/slog"

	"github.com/etherna/sso/internal/domain"
	"github.com/etherna/sso/internal/events"
	"github.com/etherna/sso/internal/ports"
)

// RegisterCoreHandlers wires the built-in event handlers: structured audit
// logging for every account-lifecycle event plus last-login bookkeeping.
// Additional handlers can be registered alongside; a failing handler never
// blocks the others.
func RegisterCoreHandlers(d *events.Dispatcher, logger *slog.Logger, accounts ports.AccountRepository) {
	events.On(d, func(ctx context.Context, e domain.UserLoginSuccess) error {
		return accounts.SetLastLogin(ctx, e.AccountID, e.At)
	})

	events.On(d, func(ctx context.Context, e domain.UserLoginSuccess) error {
		logger.InfoContext(ctx, "user logged in",
			"module", "application",
			"event", e.EventName(),
			"account_id", e.AccountID,
			"method", e.Method,
		)
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.UserLoginFailure) error {
		logger.WarnContext(ctx, "user login failed",
			"module", "application",
			"event", e.EventName(),
			"account_id", e.AccountID,
			"reason", e.Reason,
		)
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.UserLogoutSuccess) error {
		logger.InfoContext(ctx, "user logged out",
			"module", "application",
			"event", e.EventName(),
			"account_id", e.AccountID,
		)
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.UserRefreshLogin) error {
		logger.InfoContext(ctx, "user sessions refreshed",
			"module", "application",
			"event", e.EventName(),
			"account_id", e.AccountID,
		)
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.EntityCreated[*domain.Account]) error {
		logger.InfoContext(ctx, "account created",
			"module", "application",
			"event", e.EventName(),
			"account_id", e.Entity.ID,
			"kind", e.Entity.Kind,
		)
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.EntityDeleted[*domain.Account]) error {
		logger.InfoContext(ctx, "account deleted",
			"module", "application",
			"event", e.EventName(),
			"account_id", e.Entity.ID,
		)
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.EntityCreated[*domain.ApiKey]) error {
		logger.InfoContext(ctx, "api key created",
			"module", "application",
			"event", e.EventName(),
			"key_id", e.Entity.ID,
			"account_id", e.Entity.OwnerID,
		)
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.EntityDeleted[*domain.ApiKey]) error {
		logger.InfoContext(ctx, "api key deleted",
			"module", "application",
			"event", e.EventName(),
			"key_id", e.Entity.ID,
			"account_id", e.Entity.OwnerID,
		)
		return nil
	})
}
