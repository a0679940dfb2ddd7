// Package invoice is the club invoices screen.
package invoice

const Resource = "invoices"

// Statuses
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusPaid     = "PAID"
)

// Actions
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
)

// DateLayout is the layout of invoice dates and of the date range filters.
const DateLayout = "2006-01-02"

var (
	FilterKeys = []string{"clubId", "status", "dateFrom", "dateTo", "amountMin", "amountMax"}
	SortFields = []string{"date", "amount", "dueDate"}
	Statuses   = []string{StatusPending, StatusApproved, StatusRejected, StatusPaid}
)

type Invoice struct {
	ID              int64   `json:"id"`
	Number          string  `json:"number"`
	MemberID        int64   `json:"memberId"`
	MemberName      string  `json:"memberName"`
	ClubID          int64   `json:"clubId"`
	ClubName        string  `json:"clubName"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Status          string  `json:"status"`
	Date            string  `json:"date"`
	DueDate         string  `json:"dueDate"`
	RejectionReason string  `json:"rejectionReason,omitempty"`
}

func (inv Invoice) IsPending() bool { return inv.Status == StatusPending }

type RejectInput struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}
