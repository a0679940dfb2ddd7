package school

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
	*listview.Controller[School]
	*listview.Actions[School]

	member session.Member
	api    *restapi.Resource[School]

	Create     *listview.Modal[School, Input]
	Edit       *listview.Modal[School, Input]
	Delete     *listview.Modal[School, struct{}]
	Activate   *listview.Modal[School, struct{}]
	Deactivate *listview.Modal[School, struct{}]
}

// NewScreen wires the schools list. opts carries the ambient settings (page size, logger, timers);
// the rest is filled in here.
func NewScreen(client *restapi.Client, opts listview.Options, v *core.Validator) (*Screen, error) {
	opts.Name = Resource
	opts.DefaultSort = listview.Sort{Field: "name", Direction: listview.Ascending}
	opts.SortFields = SortFields
	opts.FilterKeys = FilterKeys
	opts.ValidateFilter = validateFilter

	api := restapi.NewResource[School](client, Resource)
	ctrl, err := listview.New[School](api, opts)
	if err != nil {
		return nil, errors.Wrap(err, "creating schools screen")
	}

	s := &Screen{
		Controller: ctrl,
		Actions:    listview.NewActions(ctrl, func(sch School) int64 { return sch.ID }),
		member:     client.Session().Member,
		api:        api,
	}
	s.Create = listview.NewModal(ctrl, ActionCreate, func(ctx context.Context, _ *School, in Input) error {
		_, err := api.Create(ctx, in)
		return err
	}, listview.WithValidator(v), listview.WithNotice("School created."))
	s.Edit = listview.NewModal(ctrl, ActionEdit, func(ctx context.Context, sch *School, in Input) error {
		_, err := api.Update(ctx, sch.ID, in)
		return err
	}, listview.WithValidator(v), listview.WithNotice("School updated."))
	s.Delete = listview.NewModal(ctrl, ActionDelete, func(ctx context.Context, sch *School, _ struct{}) error {
		return api.Delete(ctx, sch.ID)
	}, listview.RemovesRow(), listview.WithNotice("School deleted."))
	s.Activate = listview.NewModal(ctrl, ActionActivate, s.do(ActionActivate), listview.WithNotice("School activated."))
	s.Deactivate = listview.NewModal(ctrl, ActionDeactivate, s.do(ActionDeactivate), listview.WithNotice("School deactivated."))

	if s.Can(ActionCreate) {
		listview.Register(s.Actions, s.Create, false, inputFrom, nil)
	}
	if s.Can(ActionEdit) {
		listview.Register(s.Actions, s.Edit, true, inputFrom, s.canManage)
	}
	if s.Can(ActionDelete) {
		listview.Register(s.Actions, s.Delete, true, noInput, nil)
	}
	if s.Can(ActionActivate) {
		listview.Register(s.Actions, s.Activate, true, noInput, func(sch *School) bool { return !sch.IsActive() })
		listview.Register(s.Actions, s.Deactivate, true, noInput, func(sch *School) bool { return sch.IsActive() })
	}
	return s, nil
}

func (s *Screen) do(action string) listview.Mutation[School, struct{}] {
	return func(ctx context.Context, sch *School, _ struct{}) error {
		return s.api.Do(ctx, sch.ID, action, nil)
	}
}

// Can reports whether the session member may perform action on this screen at all.
// Super admins manage every school; school admins may only edit their own.
func (s *Screen) Can(action string) bool {
	switch {
	case s.member.IsSuperAdmin():
		return true
	case s.member.IsSchoolAdmin():
		return action == ActionEdit
	default:
		return false
	}
}

func (s *Screen) canManage(sch *School) bool {
	return s.member.IsSuperAdmin() || (s.member.IsSchoolAdmin() && s.member.SchoolID == sch.ID)
}

func (s *Screen) Columns() []string {
	return []string{"ID", "NAME", "CITY", "STATUS", "CLUBS", "MEMBERS", "CREATED"}
}

func (s *Screen) Rows() [][]string {
	items := s.Snapshot().Result.Items
	rows := make([][]string, 0, len(items))
	for _, sch := range items {
		rows = append(rows, []string{
			strconv.FormatInt(sch.ID, 10),
			sch.Name,
			sch.City,
			strings.ToLower(sch.Status),
			humanize.Comma(int64(sch.Clubs)),
			humanize.Comma(int64(sch.Members)),
			humanize.Time(sch.CreatedAt),
		})
	}
	return rows
}

func validateFilter(key, value string, _ map[string]string) (string, error) {
	if key == "status" {
		st, ok := listview.Canonical(value, []string{StatusActive, StatusInactive})
		if !ok {
			return "", errors.Errorf("status must be one of %s, %s", StatusActive, StatusInactive)
		}
		return st, nil
	}
	return value, nil
}

func inputFrom(sch *School, args listview.Args) (Input, error) {
	var in Input
	if sch != nil {
		in = Input{Name: sch.Name, City: sch.City, Address: sch.Address, Email: sch.Email}
	}
	for k, v := range args {
		switch k {
		case "name":
			in.Name = v
		case "city":
			in.City = v
		case "address":
			in.Address = v
		case "email":
			in.Email = v
		default:
			return in, errors.Errorf("unknown field %q", k)
		}
	}
	return in, nil
}

func noInput(*School, listview.Args) (struct{}, error) { return struct{}{}, nil }
