package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/etherna/sso/internal/domain"
	"github.com/etherna/sso/internal/events"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestDispatchExactTypeRouting(t *testing.T) {
	t.Parallel()

	d := events.NewDispatcher(quietLogger(), time.Second)

	var successes, failures int
	events.On(d, func(ctx context.Context, e domain.UserLoginSuccess) error {
		successes++
		return nil
	})
	events.On(d, func(ctx context.Context, e domain.UserLoginFailure) error {
		failures++
		return nil
	})

	d.Dispatch(context.Background(),
		domain.UserLoginSuccess{AccountID: uuid.New()},
		domain.UserLoginSuccess{AccountID: uuid.New()},
		domain.UserLogoutSuccess{AccountID: uuid.New()},
	)

	if successes != 2 {
		t.Fatalf("success handler invocations = %d, want 2", successes)
	}
	if failures != 0 {
		t.Fatalf("failure handler must not see other event types, got %d calls", failures)
	}
}

func TestDispatchRegistrationOrder(t *testing.T) {
	t.Parallel()

	d := events.NewDispatcher(quietLogger(), time.Second)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		events.On(d, func(ctx context.Context, e domain.UserRefreshLogin) error {
			order = append(order, name)
			return nil
		})
	}

	d.Dispatch(context.Background(), domain.UserRefreshLogin{AccountID: uuid.New()})

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("handlers ran out of registration order: %v", order)
	}
}

func TestDispatchIsolatesHandlerFailures(t *testing.T) {
	t.Parallel()

	d := events.NewDispatcher(quietLogger(), time.Second)

	var afterError, afterPanic bool
	events.On(d, func(ctx context.Context, e domain.UserLoginSuccess) error {
		return errors.New("boom")
	})
	events.On(d, func(ctx context.Context, e domain.UserLoginSuccess) error {
		afterError = true
		panic("handler exploded")
	})
	events.On(d, func(ctx context.Context, e domain.UserLoginSuccess) error {
		afterPanic = true
		return nil
	})

	d.Dispatch(context.Background(), domain.UserLoginSuccess{AccountID: uuid.New()})

	if !afterError {
		t.Fatalf("handler after a failing handler must still run")
	}
	if !afterPanic {
		t.Fatalf("handler after a panicking handler must still run")
	}
}

func TestDispatchHandlerTimeout(t *testing.T) {
	t.Parallel()

	d := events.NewDispatcher(quietLogger(), 10*time.Millisecond)

	var sawDeadline bool
	events.On(d, func(ctx context.Context, e domain.UserLoginSuccess) error {
		select {
		case <-ctx.Done():
			sawDeadline = true
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	d.Dispatch(context.Background(), domain.UserLoginSuccess{AccountID: uuid.New()})

	if !sawDeadline {
		t.Fatalf("handler context must carry the per-handler timeout")
	}
}

func TestDispatchNoHandlers(t *testing.T) {
	t.Parallel()

	d := events.NewDispatcher(quietLogger(), time.Second)
	// No registrations: delivery is a no-op, not a failure.
	d.Dispatch(context.Background(), domain.UserLogoutSuccess{AccountID: uuid.New()})
}
