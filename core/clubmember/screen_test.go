package clubmember_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/klabu/core"
	"github.com/trezcool/klabu/core/clubmember"
	"github.com/trezcool/klabu/core/listview"
	"github.com/trezcool/klabu/core/session"
	"github.com/trezcool/klabu/tests"
	"github.com/trezcool/klabu/tests/fakeapi"
)

// club 10 (school 1): ids 1-4, club 11 (school 1): ids 5-6, club 20 (school 2): ids 7-8
var roster = []clubmember.ClubMember{
	{ID: 1, MemberID: 3, FirstName: "Kabila", LastName: "Amani", ClubID: 10, SchoolID: 1, Role: clubmember.RolePresident},
	{ID: 2, MemberID: 21, FirstName: "Neema", LastName: "Bahati", ClubID: 10, SchoolID: 1, Role: clubmember.RoleMember},
	{ID: 3, MemberID: 22, FirstName: "Furaha", LastName: "Chausiku", ClubID: 10, SchoolID: 1, Role: clubmember.RoleTreasurer},
	{ID: 4, MemberID: 23, FirstName: "Jabali", LastName: "Dunia", ClubID: 10, SchoolID: 1, Role: clubmember.RoleSecretary},
	{ID: 5, MemberID: 24, FirstName: "Zawadi", LastName: "Eshe", ClubID: 11, SchoolID: 1, Role: clubmember.RoleMember},
	{ID: 6, MemberID: 25, FirstName: "Imani", LastName: "Faraji", ClubID: 11, SchoolID: 1, Role: clubmember.RoleMember},
	{ID: 7, MemberID: 26, FirstName: "Baraka", LastName: "Gasore", ClubID: 20, SchoolID: 2, Role: clubmember.RoleMember},
	{ID: 8, MemberID: 27, FirstName: "Tumaini", LastName: "Hakizimana", ClubID: 20, SchoolID: 2, Role: clubmember.RolePresident},
}

func setup(t *testing.T, sess session.Member) (*fakeapi.Server, *clubmember.Screen) {
	srv := fakeapi.New(t)
	rows := make([]interface{}, 0, len(roster))
	for i, m := range roster {
		m.ClubName = fmt.Sprintf("Club %d", m.ClubID)
		m.JoinedAt = time.Date(2022, 10, i+1, 0, 0, 0, 0, time.UTC)
		rows = append(rows, m)
	}
	srv.Register(fakeapi.Collection{Name: clubmember.Resource, SearchFields: []string{"firstName", "lastName"}, DefaultSort: "lastName"}, rows...)

	scr, err := clubmember.NewScreen(testutil.Client(srv, sess), testutil.ListOptions(new(testutil.ManualTimers)), testutil.Validator())
	require.NoError(t, err)
	t.Cleanup(scr.Close)
	require.NoError(t, scr.Refresh(context.Background()))
	return srv, scr
}

func TestRoleLadder(t *testing.T) {
	tests := []struct {
		role           string
		next, previous string
	}{
		{role: clubmember.RoleMember, next: clubmember.RoleSecretary},
		{role: clubmember.RoleSecretary, next: clubmember.RoleTreasurer, previous: clubmember.RoleMember},
		{role: clubmember.RoleTreasurer, next: clubmember.RolePresident, previous: clubmember.RoleSecretary},
		{role: clubmember.RolePresident, previous: clubmember.RoleTreasurer},
		{role: "MASCOT"},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			next, ok := clubmember.NextRole(tt.role)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.next != "", ok)
			prev, ok := clubmember.PreviousRole(tt.role)
			assert.Equal(t, tt.previous, prev)
			assert.Equal(t, tt.previous != "", ok)
		})
	}
}

func TestDefaultFilters(t *testing.T) {
	tests := []struct {
		name   string
		member session.Member
		want   map[string]string
	}{
		{name: "super admin", member: testutil.SuperAdmin},
		{name: "school admin", member: testutil.SchoolAdmin, want: map[string]string{"schoolId": "1"}},
		{name: "leader of one club", member: testutil.ClubLeader, want: map[string]string{"clubId": "10"}},
		{name: "leader of two clubs", member: testutil.MultiLeader},
		{name: "member", member: testutil.Member},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clubmember.DefaultFilters(tt.member))
		})
	}
}

func TestScreen_offered(t *testing.T) {
	_, scr := setup(t, testutil.ClubLeader)
	assert.Equal(t, 4, scr.Meta().TotalCount, "scoped to the leader's club")

	tests := []struct {
		id   int64
		want []string
	}{
		{id: 1, want: nil}, // the leader themself
		{id: 2, want: []string{"promote", "remove"}},
		{id: 3, want: []string{"demote", "promote", "remove"}},
		{id: 7, want: nil}, // not on the page
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.id), func(t *testing.T) {
			assert.Equal(t, tt.want, scr.Offered(tt.id))
		})
	}
}

func TestScreen_promoteDemote(t *testing.T) {
	srv, scr := setup(t, testutil.SuperAdmin)
	ctx := context.Background()

	require.NoError(t, scr.Act(ctx, clubmember.ActionPromote, 2, nil))
	assert.Equal(t, clubmember.RoleSecretary, srv.Rows(clubmember.Resource)[1]["role"])
	assert.Equal(t, "Member promoted.", scr.Meta().Notice)

	require.NoError(t, scr.Act(ctx, clubmember.ActionDemote, 3, listview.Args{"role": "member"}))
	assert.Equal(t, clubmember.RoleMember, srv.Rows(clubmember.Resource)[2]["role"])

	// role changes against the action are refused before reaching the server (#4 is a secretary)
	refused := []struct {
		name   string
		action string
		role   string
		want   string
	}{
		{name: "same role", action: clubmember.ActionPromote, role: clubmember.RoleSecretary, want: "Jabali Dunia already is secretary"},
		{name: "promote downwards", action: clubmember.ActionPromote, role: "member", want: "Jabali Dunia cannot be promoted to member"},
		{name: "demote upwards", action: clubmember.ActionDemote, role: clubmember.RolePresident, want: "Jabali Dunia cannot be demoted to president"},
	}
	for _, tt := range refused {
		t.Run(tt.name, func(t *testing.T) {
			before := len(srv.Requests())
			err := scr.Act(ctx, tt.action, 4, listview.Args{"role": tt.role})
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.want, core.DisplayMessage(err))
			assert.Len(t, srv.Requests(), before)
			assert.Equal(t, clubmember.RoleSecretary, srv.Rows(clubmember.Resource)[3]["role"])
		})
	}

	// skipping a rung is fine
	require.NoError(t, scr.Act(ctx, clubmember.ActionPromote, 4, listview.Args{"role": "president"}))
	assert.Equal(t, clubmember.RolePresident, srv.Rows(clubmember.Resource)[3]["role"])

	err := scr.Act(ctx, clubmember.ActionPromote, 8, nil)
	assert.True(t, errors.Is(err, listview.ErrNotAllowed), "a president cannot be promoted")

	err = scr.Act(ctx, clubmember.ActionDemote, 2, listview.Args{"role": "mascot"})
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr), "got %v", err)
}

func TestScreen_remove(t *testing.T) {
	srv, scr := setup(t, testutil.SchoolAdmin)
	ctx := context.Background()
	assert.Equal(t, 6, scr.Meta().TotalCount)

	require.NoError(t, scr.Act(ctx, clubmember.ActionRemove, 6, nil))
	assert.Len(t, srv.Rows(clubmember.Resource), 7)
	assert.Equal(t, 5, scr.Meta().TotalCount)
	assert.Equal(t, "Member removed from the club.", scr.Meta().Notice)
}

func TestScreen_memberSeesNoActions(t *testing.T) {
	_, scr := setup(t, testutil.Member)
	assert.False(t, scr.Can(clubmember.ActionRemove))
	assert.Empty(t, scr.Offered(2))
}

func TestScreen_roleFilter(t *testing.T) {
	srv, scr := setup(t, testutil.SuperAdmin)

	assert.Error(t, scr.SetFilter("role", "mascot"))
	require.NoError(t, scr.SetFilter("role", "treasurer"))
	assert.Equal(t, clubmember.RoleTreasurer, scr.Query().Filters["role"])

	require.NoError(t, scr.Refresh(context.Background()))
	assert.Equal(t, clubmember.RoleTreasurer, srv.LastRequest().Query.Get("role"))
	assert.Equal(t, "3", scr.Rows()[0][0])
	assert.Equal(t, 1, scr.Meta().TotalCount)
}
