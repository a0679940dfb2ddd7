// Package session holds the authenticated member explicitly handed to the screens.
package session

import (
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// Roles
const (
	RoleSuperAdmin  = "super_admin"
	RoleSchoolAdmin = "school_admin"
	RoleClubLeader  = "club_leader"
	RoleMember      = "member"
)

var (
	AllRoles = []string{RoleSuperAdmin, RoleSchoolAdmin, RoleClubLeader, RoleMember}

	ErrNoToken      = errors.New("no session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// Member is the currently authenticated member.
type Member struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	SchoolID int64   `json:"schoolId,omitempty"`
	ClubIDs  []int64 `json:"clubIds,omitempty"`
}

func (m Member) IsSuperAdmin() bool  { return m.Role == RoleSuperAdmin }
func (m Member) IsSchoolAdmin() bool { return m.Role == RoleSchoolAdmin }
func (m Member) IsClubLeader() bool  { return m.Role == RoleClubLeader }

// IsAdmin reports whether the member administers at least one school.
func (m Member) IsAdmin() bool {
	return m.IsSuperAdmin() || m.IsSchoolAdmin()
}

// LeadsClub reports whether the member leads the club `id`.
func (m Member) LeadsClub(id int64) bool {
	if !m.IsClubLeader() {
		return false
	}
	for _, cid := range m.ClubIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// SingleClub returns the member's club when they lead exactly one.
func (m Member) SingleClub() (int64, bool) {
	if m.IsClubLeader() && len(m.ClubIDs) == 1 {
		return m.ClubIDs[0], true
	}
	return 0, false
}

// Claims represents the session claims transmitted via the backend JWT.
type Claims struct {
	jwt.StandardClaims
	MemberID int64   `json:"mid"`
	Name     string  `json:"name,omitempty"`
	Email    string  `json:"email,omitempty"`
	Role     string  `json:"role,omitempty"`
	SchoolID int64   `json:"school_id,omitempty"`
	ClubIDs  []int64 `json:"club_ids,omitempty"`
}

// Context is handed explicitly to every screen needing role or affiliation data.
type Context struct {
	Member Member
	Token  string
}

// New builds a Context from an already known member (tests, fixtures).
func New(member Member, token string) *Context {
	return &Context{Member: member, Token: token}
}

// FromToken decodes the backend-issued session token.
// The signature is verified when secret is provided; otherwise the claims are trusted as-is
// since the backend verifies the token on every request anyway.
func FromToken(token string, secret []byte) (*Context, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}

	claims := new(Claims)
	if len(secret) > 0 {
		tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !tkn.Valid {
			return nil, errors.Wrap(ErrInvalidToken, "verifying")
		}
	} else {
		if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
			return nil, errors.Wrap(ErrInvalidToken, "parsing")
		}
		if err := claims.Valid(); err != nil { // expiry
			return nil, errors.Wrap(ErrInvalidToken, err.Error())
		}
	}

	if !isKnownRole(claims.Role) {
		return nil, errors.Wrapf(ErrInvalidToken, "unknown role %q", claims.Role)
	}
	return &Context{
		Member: Member{
			ID:       claims.MemberID,
			Name:     claims.Name,
			Email:    claims.Email,
			Role:     claims.Role,
			SchoolID: claims.SchoolID,
			ClubIDs:  claims.ClubIDs,
		},
		Token: token,
	}, nil
}

func isKnownRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}
