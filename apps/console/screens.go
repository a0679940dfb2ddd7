package main

import (
	"context"
	"sort"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/announcement"
	"github.com/trezcool/klabu/core/clubmember"
	"github.com/trezcool/klabu/core/invoice"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/core/member"
	"github.com/trezcool/klabu/core/school"
	"github.com/trezcool/klabu/services/restapi"
)

// screen is what the console needs from an entity screen.
type screen interface {
	listview.View
	Columns() []string
	Rows() [][]string
	Names() []string
	Offered(id int64) []string
	Act(ctx context.Context, name string, id int64, args listview.Args) error
	Can(action string) bool
}

var (
	_ screen = (*school.Screen)(nil)
	_ screen = (*member.Screen)(nil)
	_ screen = (*clubmember.Screen)(nil)
	_ screen = (*invoice.Screen)(nil)
	_ screen = (*announcement.Screen)(nil)
)

type screens map[string]screen

func newScreens(client *restapi.Client, opts listview.Options, v *core.Validator) (screens, error) {
	all := make(screens)
	add := func(s screen, err error) error {
		if err != nil {
			return err
		}
		all[s.Name()] = s
		return nil
	}

	schools, err := school.NewScreen(client, opts, v)
	if err = add(schools, err); err != nil {
		return nil, err
	}
	members, err := member.NewScreen(client, opts, v)
	if err = add(members, err); err != nil {
		return nil, err
	}
	clubMembers, err := clubmember.NewScreen(client, opts, v)
	if err = add(clubMembers, err); err != nil {
		return nil, err
	}
	invoices, err := invoice.NewScreen(client, opts, v)
	if err = add(invoices, err); err != nil {
		return nil, err
	}
	announcements, err := announcement.NewScreen(client, opts, v)
	if err = add(announcements, err); err != nil {
		return nil, err
	}
	return all, nil
}

func (all screens) names() []string {
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (all screens) close() {
	for _, s := range all {
		s.Close()
	}
}
