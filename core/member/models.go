// Package member is the membership requests screen: approving, rejecting and removing members.
package member

import "time"

const Resource = "members"

// Statuses
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Actions
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
)

var (
	FilterKeys = []string{"schoolId", "role", "status"}
	SortFields = []string{"lastName", "createdAt"}
	Statuses   = []string{StatusPending, StatusApproved, StatusRejected}
)

type Member struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	SchoolID   int64     `json:"schoolId"`
	SchoolName string    `json:"schoolName"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (m Member) FullName() string { return m.FirstName + " " + m.LastName }

func (m Member) IsPending() bool { return m.Status == StatusPending }

type RejectInput struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}
