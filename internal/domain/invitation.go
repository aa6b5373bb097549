package domain

import (
	"time"

	"github.com/google/uuid"
)

// Invitation gates registration when the deployment runs invite-only.
type Invitation struct {
	EventQueue

	ID          uuid.UUID
	Code        uuid.UUID
	EmitterID   *uuid.UUID
	EndLife     *time.Time
	IsSingleUse bool
	IsFromAdmin bool
	CreatedAt   time.Time
}

// NewInvitation issues an invitation with a fresh GUID code.
func NewInvitation(emitter *uuid.UUID, endLife *time.Time, singleUse, fromAdmin bool, now time.Time) *Invitation {
	return &Invitation{
		ID:          uuid.New(),
		Code:        uuid.New(),
		EmitterID:   emitter,
		EndLife:     endLife,
		IsSingleUse: singleUse,
		IsFromAdmin: fromAdmin,
		CreatedAt:   now,
	}
}

// IsExpired reports whether EndLife has passed.
func (i *Invitation) IsExpired(now time.Time) bool {
	return i.EndLife != nil && i.EndLife.Before(now)
}
