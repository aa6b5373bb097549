package events

import (
	"context"

	"github.com/etherna/sso/internal/domain"
)

// Persister is the slice of a repository the store needs: durable
// create/update/delete for one aggregate type. Update persists all given
// aggregates as one unit of work.
type Persister[T domain.Aggregate] interface {
	Create(ctx context.Context, aggregate T) error
	Update(ctx context.Context, aggregates ...T) error
	Delete(ctx context.Context, aggregate T) error
}

// Store couples persistence with event dispatch: events queued on an
// aggregate are delivered only after the owning write committed, and are
// cleared as soon as they are handed to the dispatcher. A failed write
// dispatches nothing and leaves the queue intact for a future attempt.
type Store[T domain.Aggregate] struct {
	repo Persister[T]
	bus  *Dispatcher
}

func NewStore[T domain.Aggregate](repo Persister[T], bus *Dispatcher) *Store[T] {
	return &Store[T]{repo: repo, bus: bus}
}

// Create persists the aggregate, then dispatches EntityCreated followed by
// the aggregate's queued custom events, in that order.
func (s *Store[T]) Create(ctx context.Context, aggregate T) error {
	if err := s.repo.Create(ctx, aggregate); err != nil {
		return err
	}
	queued := aggregate.Events()
	aggregate.ClearEvents()
	s.bus.Dispatch(ctx, domain.EntityCreated[T]{Entity: aggregate})
	s.bus.Dispatch(ctx, queued...)
	return nil
}

// Delete persists the deletion, then dispatches the still-queued custom
// events (pre-deletion side effects) followed by EntityDeleted.
func (s *Store[T]) Delete(ctx context.Context, aggregate T) error {
	if err := s.repo.Delete(ctx, aggregate); err != nil {
		return err
	}
	queued := aggregate.Events()
	aggregate.ClearEvents()
	s.bus.Dispatch(ctx, queued...)
	s.bus.Dispatch(ctx, domain.EntityDeleted[T]{Entity: aggregate})
	return nil
}

// Save persists all given aggregates as one unit, then dispatches and
// clears each aggregate's queued events.
func (s *Store[T]) Save(ctx context.Context, aggregates ...T) error {
	if len(aggregates) == 0 {
		return nil
	}
	if err := s.repo.Update(ctx, aggregates...); err != nil {
		return err
	}
	for _, aggregate := range aggregates {
		queued := aggregate.Events()
		aggregate.ClearEvents()
		s.bus.Dispatch(ctx, queued...)
	}
	return nil
}
