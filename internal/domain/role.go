package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a named grouping accounts reference by normalized name.
type Role struct {
	ID             uuid.UUID
	Name           string
	NormalizedName string
	CreatedAt      time.Time
}

// NewRole creates a role with its upper-cased normalized form.
func NewRole(name string, now time.Time) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	return &Role{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: strings.ToUpper(name),
		CreatedAt:      now,
	}, nil
}
