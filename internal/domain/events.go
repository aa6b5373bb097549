package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable fact raised by an aggregate mutation. Events stay
// queued on the aggregate until the dispatch pipeline delivers them after
// the owning write has been durably committed.
type Event interface {
	EventName() string
}

// Aggregate is an entity that queues domain events during mutations.
type Aggregate interface {
	Events() []Event
	ClearEvents()
}

// EventQueue is the embeddable per-aggregate event buffer.
// Mutating methods call Raise; the dispatch pipeline drains it post-commit.
type EventQueue struct {
	events []Event
}

func (q *EventQueue) Raise(e Event) {
	q.events = append(q.events, e)
}

func (q *EventQueue) Events() []Event {
	return q.events
}

func (q *EventQueue) ClearEvents() {
	q.events = nil
}

// EntityCreated is raised by the dispatch pipeline after a successful create,
// never by the aggregate itself.
type EntityCreated[T any] struct {
	Entity T
}

func (EntityCreated[T]) EventName() string {
	var zero T
	return fmt.Sprintf("entity_created(%T)", zero)
}

// EntityDeleted is raised by the dispatch pipeline after a successful delete.
type EntityDeleted[T any] struct {
	Entity T
}

func (EntityDeleted[T]) EventName() string {
	var zero T
	return fmt.Sprintf("entity_deleted(%T)", zero)
}

// UserLoginSuccess records a completed authentication, whatever the method.
type UserLoginSuccess struct {
	AccountID uuid.UUID
	Method    string
	At        time.Time
}

func (UserLoginSuccess) EventName() string { return "user_login_success" }

// UserLoginFailure records a rejected authentication attempt and its internal reason.
type UserLoginFailure struct {
	AccountID uuid.UUID
	Reason    string
	At        time.Time
}

func (UserLoginFailure) EventName() string { return "user_login_failure" }

type UserLogoutSuccess struct {
	AccountID uuid.UUID
	At        time.Time
}

func (UserLogoutSuccess) EventName() string { return "user_logout_success" }

// UserRefreshLogin signals that downstream sessions must be refreshed,
// typically after a security-stamp change.
type UserRefreshLogin struct {
	AccountID uuid.UUID
	At        time.Time
}

func (UserRefreshLogin) EventName() string { return "user_refresh_login" }
