package invoice

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/core/session"
	"github.com/trezcool/klabu/services/restapi"
)

type Screen struct {
	*listview.Controller[Invoice]
	*listview.Actions[Invoice]

	member session.Member
	api    *restapi.Resource[Invoice]
	now    func() time.Time

	Approve *listview.Modal[Invoice, struct{}]
	Reject  *listview.Modal[Invoice, RejectInput]
	Delete  *listview.Modal[Invoice, struct{}]
}

func NewScreen(client *restapi.Client, opts listview.Options, v *core.Validator) (*Screen, error) {
	sess := client.Session().Member
	opts.Name = Resource
	opts.DefaultSort = listview.Sort{Field: "date", Direction: listview.Descending}
	opts.SortFields = SortFields
	opts.FilterKeys = FilterKeys
	opts.DefaultFilters = DefaultFilters(sess)
	opts.ValidateFilter = ValidateFilter

	api := restapi.NewResource[Invoice](client, Resource)
	ctrl, err := listview.New[Invoice](api, opts)
	if err != nil {
		return nil, errors.Wrap(err, "creating invoices screen")
	}

	s := &Screen{
		Controller: ctrl,
		Actions:    listview.NewActions(ctrl, func(inv Invoice) int64 { return inv.ID }),
		member:     sess,
		api:        api,
		now:        time.Now,
	}
	s.Approve = listview.NewModal(ctrl, ActionApprove, func(ctx context.Context, inv *Invoice, _ struct{}) error {
		return api.Do(ctx, inv.ID, ActionApprove, nil)
	}, listview.WithNotice("Invoice approved."))
	s.Reject = listview.NewModal(ctrl, ActionReject, func(ctx context.Context, inv *Invoice, in RejectInput) error {
		return api.Do(ctx, inv.ID, ActionReject, in)
	}, listview.WithValidator(v), listview.WithNotice("Invoice rejected."))
	s.Delete = listview.NewModal(ctrl, ActionDelete, func(ctx context.Context, inv *Invoice, _ struct{}) error {
		return api.Delete(ctx, inv.ID)
	}, listview.RemovesRow(), listview.WithNotice("Invoice deleted."))

	if s.Can(ActionApprove) {
		listview.Register(s.Actions, s.Approve, true, noInput, s.pendingInScope)
		listview.Register(s.Actions, s.Reject, true, func(_ *Invoice, args listview.Args) (RejectInput, error) {
			return RejectInput{Reason: args["reason"]}, nil
		}, s.pendingInScope)
	}
	if s.Can(ActionDelete) {
		listview.Register(s.Actions, s.Delete, true, noInput, func(inv *Invoice) bool {
			return inv.Status != StatusPaid
		})
	}
	return s, nil
}

// DefaultFilters scopes leaders of a single club to that club.
func DefaultFilters(m session.Member) map[string]string {
	if id, ok := m.SingleClub(); ok {
		return map[string]string{"clubId": strconv.FormatInt(id, 10)}
	}
	return nil
}

// Can: administrators moderate every invoice, club leaders approve or reject their clubs' ones.
func (s *Screen) Can(action string) bool {
	switch action {
	case ActionApprove, ActionReject:
		return s.member.IsAdmin() || s.member.IsClubLeader()
	case ActionDelete:
		return s.member.IsSuperAdmin()
	default:
		return false
	}
}

func (s *Screen) pendingInScope(inv *Invoice) bool {
	if !inv.IsPending() {
		return false
	}
	return s.member.IsAdmin() || s.member.LeadsClub(inv.ClubID)
}

func (s *Screen) Columns() []string {
	return []string{"ID", "NUMBER", "MEMBER", "CLUB", "AMOUNT", "STATUS", "DATE", "DUE"}
}

func (s *Screen) Rows() [][]string {
	items := s.Snapshot().Result.Items
	rows := make([][]string, 0, len(items))
	for _, inv := range items {
		rows = append(rows, []string{
			strconv.FormatInt(inv.ID, 10),
			inv.Number,
			inv.MemberName,
			inv.ClubName,
			humanize.FormatFloat("#,###.##", inv.Amount) + " " + inv.Currency,
			strings.ToLower(inv.Status),
			inv.Date,
			s.due(inv),
		})
	}
	return rows
}

func (s *Screen) due(inv Invoice) string {
	due, err := time.Parse(DateLayout, inv.DueDate)
	if err != nil || inv.Status == StatusPaid {
		return inv.DueDate
	}
	return humanize.RelTime(due, s.now(), "overdue", "left")
}

// ValidateFilter checks date ranges (YYYY-MM-DD) and amount bounds, a bound against
// the other one when it is set too.
func ValidateFilter(key, value string, filters map[string]string) (string, error) {
	switch key {
	case "dateFrom", "dateTo":
		if _, err := time.Parse(DateLayout, value); err != nil {
			return "", errors.Errorf("%s must be a date formatted as YYYY-MM-DD", key)
		}
		from, to := bounds(key, value, "dateFrom", "dateTo", filters)
		if from != "" && to != "" && from > to { // same layout, so strings order like dates
			return "", errors.Errorf("dateFrom (%s) must not be after dateTo (%s)", from, to)
		}
	case "amountMin", "amountMax":
		if amt, err := strconv.ParseFloat(value, 64); err != nil || amt < 0 {
			return "", errors.Errorf("%s must be a positive amount", key)
		}
		lo, hi := bounds(key, value, "amountMin", "amountMax", filters)
		loAmt, errLo := strconv.ParseFloat(lo, 64)
		hiAmt, errHi := strconv.ParseFloat(hi, 64)
		if errLo == nil && errHi == nil && loAmt > hiAmt {
			return "", errors.Errorf("amountMin (%s) must not be above amountMax (%s)", lo, hi)
		}
	case "clubId":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", errors.New("clubId must be a number")
		}
	case "status":
		st, ok := listview.Canonical(value, Statuses)
		if !ok {
			return "", errors.Errorf("status must be one of %s", strings.Join(Statuses, ", "))
		}
		return st, nil
	}
	return value, nil
}

// bounds returns the lower and upper bound of a range filter, value replacing the one of key.
func bounds(key, value, lowerKey, upperKey string, filters map[string]string) (lower, upper string) {
	lower, upper = filters[lowerKey], filters[upperKey]
	if key == lowerKey {
		lower = value
	} else {
		upper = value
	}
	return lower, upper
}

func noInput(*Invoice, listview.Args) (struct{}, error) { return struct{}{}, nil }
