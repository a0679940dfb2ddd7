package clubmember

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
	*listview.Controller[ClubMember]
	*listview.Actions[ClubMember]

	member session.Member
	api    *restapi.Resource[ClubMember]

	Promote *listview.Modal[ClubMember, RoleInput]
	Demote  *listview.Modal[ClubMember, RoleInput]
	Remove  *listview.Modal[ClubMember, struct{}]
}

func NewScreen(client *restapi.Client, opts listview.Options, v *core.Validator) (*Screen, error) {
	sess := client.Session().Member
	opts.Name = Resource
	opts.DefaultSort = listview.Sort{Field: "lastName", Direction: listview.Ascending}
	opts.SortFields = SortFields
	opts.FilterKeys = FilterKeys
	opts.DefaultFilters = DefaultFilters(sess)
	opts.ValidateFilter = validateFilter

	api := restapi.NewResource[ClubMember](client, Resource)
	ctrl, err := listview.New[ClubMember](api, opts)
	if err != nil {
		return nil, errors.Wrap(err, "creating club members screen")
	}

	s := &Screen{
		Controller: ctrl,
		Actions:    listview.NewActions(ctrl, func(m ClubMember) int64 { return m.ID }),
		member:     sess,
		api:        api,
	}
	s.Promote = listview.NewModal(ctrl, ActionPromote, s.changeRole(ActionPromote),
		listview.WithValidator(v), listview.WithNotice("Member promoted."))
	s.Demote = listview.NewModal(ctrl, ActionDemote, s.changeRole(ActionDemote),
		listview.WithValidator(v), listview.WithNotice("Member demoted."))
	s.Remove = listview.NewModal(ctrl, ActionRemove, func(ctx context.Context, m *ClubMember, _ struct{}) error {
		return api.Delete(ctx, m.ID)
	}, listview.RemovesRow(), listview.WithNotice("Member removed from the club."))

	if s.Can(ActionPromote) {
		listview.Register(s.Actions, s.Promote, true, roleInput(NextRole), func(m *ClubMember) bool {
			_, ok := NextRole(m.Role)
			return ok && s.manages(m)
		})
		listview.Register(s.Actions, s.Demote, true, roleInput(PreviousRole), func(m *ClubMember) bool {
			_, ok := PreviousRole(m.Role)
			return ok && s.manages(m)
		})
		listview.Register(s.Actions, s.Remove, true, func(*ClubMember, listview.Args) (struct{}, error) {
			return struct{}{}, nil
		}, s.manages)
	}
	return s, nil
}

// DefaultFilters scopes school admins to their school and leaders of a single club to that club.
func DefaultFilters(m session.Member) map[string]string {
	if m.IsSchoolAdmin() && m.SchoolID != 0 {
		return map[string]string{"schoolId": strconv.FormatInt(m.SchoolID, 10)}
	}
	if id, ok := m.SingleClub(); ok {
		return map[string]string{"clubId": strconv.FormatInt(id, 10)}
	}
	return nil
}

func (s *Screen) changeRole(action string) listview.Mutation[ClubMember, RoleInput] {
	return func(ctx context.Context, m *ClubMember, in RoleInput) error {
		role := strings.ToLower(in.Role)
		switch from, to := rank(m.Role), rank(in.Role); {
		case to == from:
			return core.NewValidationError(errors.Errorf("%s already is %s", m.FullName(), role))
		case action == ActionPromote && to < from:
			return core.NewValidationError(errors.Errorf("%s cannot be promoted to %s", m.FullName(), role))
		case action == ActionDemote && to > from:
			return core.NewValidationError(errors.Errorf("%s cannot be demoted to %s", m.FullName(), role))
		}
		return s.api.Do(ctx, m.ID, action, in)
	}
}

// roleInput defaults the target role to the next one on the ladder; args["role"] overrides it.
func roleInput(next func(string) (string, bool)) func(*ClubMember, listview.Args) (RoleInput, error) {
	return func(m *ClubMember, args listview.Args) (RoleInput, error) {
		if role := strings.ToUpper(args["role"]); role != "" {
			return RoleInput{Role: role}, nil
		}
		role, ok := next(m.Role)
		if !ok {
			return RoleInput{}, errors.Errorf("no role to move %s to", m.FullName())
		}
		return RoleInput{Role: role}, nil
	}
}

// Can: administrators and club leaders manage rosters.
func (s *Screen) Can(action string) bool {
	switch action {
	case ActionPromote, ActionDemote, ActionRemove:
		return s.member.IsAdmin() || s.member.IsClubLeader()
	default:
		return false
	}
}

func (s *Screen) manages(m *ClubMember) bool {
	switch {
	case s.member.IsSuperAdmin():
		return true
	case s.member.IsSchoolAdmin():
		return m.SchoolID == s.member.SchoolID
	default:
		return s.member.LeadsClub(m.ClubID) && m.MemberID != s.member.ID
	}
}

func (s *Screen) Columns() []string {
	return []string{"ID", "NAME", "CLUB", "ROLE", "JOINED"}
}

func (s *Screen) Rows() [][]string {
	items := s.Snapshot().Result.Items
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.FullName(),
			m.ClubName,
			strings.ToLower(m.Role),
			humanize.Time(m.JoinedAt),
		})
	}
	return rows
}

func validateFilter(key, value string, _ map[string]string) (string, error) {
	switch key {
	case "clubId", "schoolId":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", errors.Errorf("%s must be a number", key)
		}
	case "role":
		role, ok := listview.Canonical(value, Roles)
		if !ok {
			return "", errors.Errorf("role must be one of %s", strings.Join(Roles, ", "))
		}
		return role, nil
	}
	return value, nil
}
