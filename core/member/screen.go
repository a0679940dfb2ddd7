package member

import (
	"context"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/core/session"
	"github.com/trezcool/klabu/services/restapi"
)

type Screen struct {
	*listview.Controller[Member]
	*listview.Actions[Member]

	member session.Member
	api    *restapi.Resource[Member]

	Approve *listview.Modal[Member, struct{}]
	Reject  *listview.Modal[Member, RejectInput]
	Delete  *listview.Modal[Member, struct{}]
}

func NewScreen(client *restapi.Client, opts listview.Options, v *core.Validator) (*Screen, error) {
	sess := client.Session().Member
	opts.Name = Resource
	opts.DefaultSort = listview.Sort{Field: "lastName", Direction: listview.Ascending}
	opts.SortFields = SortFields
	opts.FilterKeys = FilterKeys
	opts.DefaultFilters = DefaultFilters(sess)
	opts.ValidateFilter = validateFilter

	api := restapi.NewResource[Member](client, Resource)
	ctrl, err := listview.New[Member](api, opts)
	if err != nil {
		return nil, errors.Wrap(err, "creating members screen")
	}

	s := &Screen{
		Controller: ctrl,
		Actions:    listview.NewActions(ctrl, func(m Member) int64 { return m.ID }),
		member:     sess,
		api:        api,
	}
	s.Approve = listview.NewModal(ctrl, ActionApprove, func(ctx context.Context, m *Member, _ struct{}) error {
		return api.Do(ctx, m.ID, ActionApprove, nil)
	}, listview.WithNotice("Member approved."))
	s.Reject = listview.NewModal(ctrl, ActionReject, func(ctx context.Context, m *Member, in RejectInput) error {
		return api.Do(ctx, m.ID, ActionReject, in)
	}, listview.WithValidator(v), listview.WithNotice("Member rejected."))
	s.Delete = listview.NewModal(ctrl, ActionDelete, func(ctx context.Context, m *Member, _ struct{}) error {
		return api.Delete(ctx, m.ID)
	}, listview.RemovesRow(), listview.WithNotice("Member deleted."))

	if s.Can(ActionApprove) {
		listview.Register(s.Actions, s.Approve, true, noInput, s.pendingInScope)
		listview.Register(s.Actions, s.Reject, true, func(_ *Member, args listview.Args) (RejectInput, error) {
			return RejectInput{Reason: args["reason"]}, nil
		}, s.pendingInScope)
	}
	if s.Can(ActionDelete) {
		listview.Register(s.Actions, s.Delete, true, noInput, s.inScope)
	}
	return s, nil
}

// DefaultFilters scopes school admins to their own school.
func DefaultFilters(m session.Member) map[string]string {
	if m.IsSchoolAdmin() && m.SchoolID != 0 {
		return map[string]string{"schoolId": strconv.FormatInt(m.SchoolID, 10)}
	}
	return nil
}

// Can: only administrators moderate members.
func (s *Screen) Can(action string) bool {
	switch action {
	case ActionApprove, ActionReject, ActionDelete:
		return s.member.IsAdmin()
	default:
		return false
	}
}

func (s *Screen) inScope(m *Member) bool {
	return s.member.IsSuperAdmin() || m.SchoolID == s.member.SchoolID
}

func (s *Screen) pendingInScope(m *Member) bool {
	return m.IsPending() && s.inScope(m)
}

func (s *Screen) Columns() []string {
	return []string{"ID", "NAME", "EMAIL", "ROLE", "SCHOOL", "STATUS", "JOINED"}
}

func (s *Screen) Rows() [][]string {
	items := s.Snapshot().Result.Items
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.FullName(),
			m.Email,
			m.Role,
			m.SchoolName,
			strings.ToLower(m.Status),
			humanize.Time(m.CreatedAt),
		})
	}
	return rows
}

func validateFilter(key, value string, _ map[string]string) (string, error) {
	switch key {
	case "schoolId":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", errors.New("schoolId must be a number")
		}
	case "status":
		st, ok := listview.Canonical(value, Statuses)
		if !ok {
			return "", errors.Errorf("status must be one of %s", strings.Join(Statuses, ", "))
		}
		return st, nil
	case "role":
		role, ok := listview.Canonical(value, session.AllRoles)
		if !ok {
			return "", errors.Errorf("role must be one of %s", strings.Join(session.AllRoles, ", "))
		}
		return role, nil
	}
	return value, nil
}

func noInput(*Member, listview.Args) (struct{}, error) { return struct{}{}, nil }
