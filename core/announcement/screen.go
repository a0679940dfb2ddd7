package announcement

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/core/session"
	"github.com/trezcool/klabu/services/restapi"
)

const excerptLen = 60

type Screen struct {
	*listview.Controller[Announcement]
	*listview.Actions[Announcement]

	member session.Member
	api    *restapi.Resource[Announcement]

	Create *listview.Modal[Announcement, Input]
	Edit   *listview.Modal[Announcement, Input]
	Delete *listview.Modal[Announcement, struct{}]
}

func NewScreen(client *restapi.Client, opts listview.Options, v *core.Validator) (*Screen, error) {
	sess := client.Session().Member
	opts.Name = Resource
	opts.DefaultSort = listview.Sort{Field: "publishedAt", Direction: listview.Descending}
	opts.SortFields = SortFields
	opts.FilterKeys = FilterKeys
	opts.DefaultFilters = DefaultFilters(sess)
	opts.ValidateFilter = validateFilter

	api := restapi.NewResource[Announcement](client, Resource)
	ctrl, err := listview.New[Announcement](api, opts)
	if err != nil {
		return nil, errors.Wrap(err, "creating announcements screen")
	}

	s := &Screen{
		Controller: ctrl,
		Actions:    listview.NewActions(ctrl, func(a Announcement) int64 { return a.ID }),
		member:     sess,
		api:        api,
	}
	s.Create = listview.NewModal(ctrl, ActionCreate, func(ctx context.Context, _ *Announcement, in Input) error {
		if !s.mayPostTo(in.ClubID) {
			return core.NewValidationError(nil, core.FieldError{Field: "clubId", Error: "you do not lead this club"})
		}
		_, err := api.Create(ctx, in)
		return err
	}, listview.WithValidator(v), listview.WithNotice("Announcement published."))
	s.Edit = listview.NewModal(ctrl, ActionEdit, func(ctx context.Context, a *Announcement, in Input) error {
		_, err := api.Update(ctx, a.ID, in)
		return err
	}, listview.WithValidator(v), listview.WithNotice("Announcement updated."))
	s.Delete = listview.NewModal(ctrl, ActionDelete, func(ctx context.Context, a *Announcement, _ struct{}) error {
		return api.Delete(ctx, a.ID)
	}, listview.RemovesRow(), listview.WithNotice("Announcement deleted."))

	if s.Can(ActionCreate) {
		listview.Register(s.Actions, s.Create, false, s.inputFrom, nil)
		listview.Register(s.Actions, s.Edit, true, s.inputFrom, s.manages)
		listview.Register(s.Actions, s.Delete, true, func(*Announcement, listview.Args) (struct{}, error) {
			return struct{}{}, nil
		}, s.manages)
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

func (s *Screen) Can(action string) bool {
	switch action {
	case ActionCreate, ActionEdit, ActionDelete:
		return s.member.IsAdmin() || s.member.IsClubLeader()
	default:
		return false
	}
}

func (s *Screen) manages(a *Announcement) bool {
	return s.mayPostTo(a.ClubID)
}

func (s *Screen) mayPostTo(clubID int64) bool {
	return s.member.IsAdmin() || s.member.LeadsClub(clubID)
}

func (s *Screen) inputFrom(a *Announcement, args listview.Args) (Input, error) {
	in := Input{Audience: AudienceAll}
	if a != nil {
		in = Input{Title: a.Title, Body: a.Body, Audience: a.Audience, ClubID: a.ClubID}
	} else if id, ok := s.member.SingleClub(); ok {
		in.ClubID = id
	}
	for k, v := range args {
		switch k {
		case "title":
			in.Title = v
		case "body":
			in.Body = v
		case "audience":
			in.Audience = strings.ToUpper(v)
		case "clubId":
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return in, core.NewValidationError(nil, core.FieldError{Field: "clubId", Error: "must be a number"})
			}
			in.ClubID = id
		default:
			return in, errors.Errorf("unknown field %q", k)
		}
	}
	return in, nil
}

func (s *Screen) Columns() []string {
	return []string{"ID", "TITLE", "CLUB", "AUDIENCE", "PUBLISHED", "EXCERPT"}
}

func (s *Screen) Rows() [][]string {
	items := s.Snapshot().Result.Items
	rows := make([][]string, 0, len(items))
	for _, a := range items {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.Title,
			a.ClubName,
			strings.ToLower(a.Audience),
			a.PublishedAt,
			excerpt(a.Body),
		})
	}
	return rows
}

func excerpt(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(body) <= excerptLen {
		return body
	}
	return string([]rune(body)[:excerptLen-1]) + "…"
}

func validateFilter(key, value string, filters map[string]string) (string, error) {
	switch key {
	case "dateFrom", "dateTo":
		if _, err := time.Parse(DateLayout, value); err != nil {
			return "", errors.Errorf("%s must be a date formatted as YYYY-MM-DD", key)
		}
		from, to := filters["dateFrom"], filters["dateTo"]
		if key == "dateFrom" {
			from = value
		} else {
			to = value
		}
		if from != "" && to != "" && from > to {
			return "", errors.Errorf("dateFrom (%s) must not be after dateTo (%s)", from, to)
		}
	case "clubId":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", errors.New("clubId must be a number")
		}
	case "audience":
		audience, ok := listview.Canonical(value, Audiences)
		if !ok {
			return "", errors.Errorf("audience must be one of %s", strings.Join(Audiences, ", "))
		}
		return audience, nil
	}
	return value, nil
}
