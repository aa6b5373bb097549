package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/etherna/sso/internal/domain"
	"github.com/etherna/sso/internal/events"
)

type fakePersister struct {
	createErr error
	updateErr error
	deleteErr error
	creates   int
	updates   int
	deletes   int
}

func (p *fakePersister) Create(ctx context.Context, aggregate *domain.Account) error {
	p.creates++
	return p.createErr
}

func (p *fakePersister) Update(ctx context.Context, aggregates ...*domain.Account) error {
	p.updates++
	return p.updateErr
}

func (p *fakePersister) Delete(ctx context.Context, aggregate *domain.Account) error {
	p.deletes++
	return p.deleteErr
}

func storeFixture(t *testing.T) (*events.Store[*domain.Account], *fakePersister, *events.Dispatcher) {
	t.Helper()
	persister := &fakePersister{}
	dispatcher := events.NewDispatcher(quietLogger(), time.Second)
	return events.NewStore[*domain.Account](persister, dispatcher), persister, dispatcher
}

func walletAggregate(t *testing.T) *domain.Account {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a, err := domain.NewWalletAccount("carol_01", "0x5AEDA56215b167893e80B4fE645BA6d5Bab767DE", "stamp", nil, now)
	if err != nil {
		t.Fatalf("new wallet account: %v", err)
	}
	return a
}

func TestStoreCreateDispatchOrder(t *testing.T) {
	t.Parallel()

	store, _, dispatcher := storeFixture(t)

	var order []string
	events.On(dispatcher, func(ctx context.Context, e domain.EntityCreated[*domain.Account]) error {
		order = append(order, "created")
		return nil
	})
	events.On(dispatcher, func(ctx context.Context, e domain.UserLoginSuccess) error {
		order = append(order, "queued")
		return nil
	})

	account := walletAggregate(t)
	account.RegisterLoginSuccess("web3", account.CreatedAt)

	if err := store.Create(context.Background(), account); err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(order) != 2 || order[0] != "created" || order[1] != "queued" {
		t.Fatalf("dispatch order = %v, want [created queued]", order)
	}
	if len(account.Events()) != 0 {
		t.Fatalf("queue must be cleared after dispatch, got %d events", len(account.Events()))
	}
}

func TestStoreCreateFailureDispatchesNothing(t *testing.T) {
	t.Parallel()

	store, persister, dispatcher := storeFixture(t)
	persister.createErr = domain.ErrConflict

	var delivered int
	events.On(dispatcher, func(ctx context.Context, e domain.EntityCreated[*domain.Account]) error {
		delivered++
		return nil
	})
	events.On(dispatcher, func(ctx context.Context, e domain.UserLoginSuccess) error {
		delivered++
		return nil
	})

	account := walletAggregate(t)
	account.RegisterLoginSuccess("web3", account.CreatedAt)

	if err := store.Create(context.Background(), account); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if delivered != 0 {
		t.Fatalf("failed write must dispatch nothing, got %d deliveries", delivered)
	}
	if len(account.Events()) != 1 {
		t.Fatalf("queue must survive a failed write for a retry, got %d events", len(account.Events()))
	}
}

func TestStoreSaveDrainsEachAggregate(t *testing.T) {
	t.Parallel()

	store, persister, dispatcher := storeFixture(t)

	var seen []uuid.UUID
	events.On(dispatcher, func(ctx context.Context, e domain.UserRefreshLogin) error {
		seen = append(seen, e.AccountID)
		return nil
	})

	first := walletAggregate(t)
	second := walletAggregate(t)
	first.RefreshSecurityStamp("stamp-a", first.CreatedAt)
	second.RefreshSecurityStamp("stamp-b", second.CreatedAt)

	if err := store.Save(context.Background(), first, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	if persister.updates != 1 {
		t.Fatalf("save must persist all aggregates as one unit, got %d updates", persister.updates)
	}
	if len(seen) != 2 || seen[0] != first.ID || seen[1] != second.ID {
		t.Fatalf("events must drain per aggregate in order, got %v", seen)
	}
	if len(first.Events()) != 0 || len(second.Events()) != 0 {
		t.Fatalf("queues must be cleared after save")
	}
}

func TestStoreSaveNothing(t *testing.T) {
	t.Parallel()

	store, persister, _ := storeFixture(t)
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("empty save: %v", err)
	}
	if persister.updates != 0 {
		t.Fatalf("empty save must not hit the repository")
	}
}

func TestStoreDeleteDispatchOrder(t *testing.T) {
	t.Parallel()

	store, _, dispatcher := storeFixture(t)

	var order []string
	events.On(dispatcher, func(ctx context.Context, e domain.UserLogoutSuccess) error {
		order = append(order, "queued")
		return nil
	})
	events.On(dispatcher, func(ctx context.Context, e domain.EntityDeleted[*domain.Account]) error {
		order = append(order, "deleted")
		return nil
	})

	account := walletAggregate(t)
	account.RegisterLogout(account.CreatedAt)

	if err := store.Delete(context.Background(), account); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(order) != 2 || order[0] != "queued" || order[1] != "deleted" {
		t.Fatalf("dispatch order = %v, want [queued deleted]", order)
	}
}
