// Package school is the schools administration screen.
package school

import "time"

const Resource = "schools"

// Statuses
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Actions
const (
	ActionCreate     = "create"
	ActionEdit       = "edit"
	ActionDelete     = "delete"
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
)

var (
	FilterKeys = []string{"status", "city"}
	SortFields = []string{"name", "city", "createdAt"}
)

type School struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Address   string    `json:"address,omitempty"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	Clubs     int       `json:"clubCount"`
	Members   int       `json:"memberCount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s School) IsActive() bool { return s.Status == StatusActive }

// Input is the create/edit form.
type Input struct {
	Name    string `json:"name" validate:"required,notblank,max=120"`
	City    string `json:"city" validate:"required,notblank"`
	Address string `json:"address,omitempty" validate:"max=255"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}
