// Package clubmember is the club roster screen: promoting, demoting and removing club members.
package clubmember

import "time"

const Resource = "club-members"

// Club roles, lowest first.
const (
	RoleMember    = "MEMBER"
	RoleSecretary = "SECRETARY"
	RoleTreasurer = "TREASURER"
	RolePresident = "PRESIDENT"
)

var Roles = []string{RoleMember, RoleSecretary, RoleTreasurer, RolePresident}

// Actions
const (
	ActionPromote = "promote"
	ActionDemote  = "demote"
	ActionRemove  = "remove"
)

var (
	FilterKeys = []string{"clubId", "schoolId", "role"}
	SortFields = []string{"lastName", "joinedAt"}
)

type ClubMember struct {
	ID        int64     `json:"id"`
	MemberID  int64     `json:"memberId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	ClubID    int64     `json:"clubId"`
	ClubName  string    `json:"clubName"`
	SchoolID  int64     `json:"schoolId"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joinedAt"`
}

func (m ClubMember) FullName() string { return m.FirstName + " " + m.LastName }

// RoleInput is the role a member is promoted or demoted to.
type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=MEMBER SECRETARY TREASURER PRESIDENT"`
}

func rank(role string) int {
	for i, r := range Roles {
		if r == role {
			return i
		}
	}
	return -1
}

// NextRole returns the role above role, if any.
func NextRole(role string) (string, bool) {
	i := rank(role)
	if i < 0 || i == len(Roles)-1 {
		return "", false
	}
	return Roles[i+1], true
}

// PreviousRole returns the role below role, if any.
func PreviousRole(role string) (string, bool) {
	i := rank(role)
	if i <= 0 {
		return "", false
	}
	return Roles[i-1], true
}
