// Package announcement is the club announcements screen.
package announcement

const Resource = "announcements"

// Audiences
const (
	AudienceAll     = "ALL"
	AudienceMembers = "MEMBERS"
	AudienceLeaders = "LEADERS"
)

// Actions
const (
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

const DateLayout = "2006-01-02"

var (
	FilterKeys = []string{"clubId", "audience", "dateFrom", "dateTo"}
	SortFields = []string{"publishedAt", "title"}
	Audiences  = []string{AudienceAll, AudienceMembers, AudienceLeaders}
)

type Announcement struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Audience    string `json:"audience"`
	ClubID      int64  `json:"clubId"`
	ClubName    string `json:"clubName"`
	AuthorName  string `json:"authorName"`
	PublishedAt string `json:"publishedAt"`
}

// Input is the create/edit form.
type Input struct {
	Title    string `json:"title" validate:"required,notblank,max=150"`
	Body     string `json:"body" validate:"required,notblank"`
	Audience string `json:"audience" validate:"required,oneof=ALL MEMBERS LEADERS"`
	ClubID   int64  `json:"clubId" validate:"required,gt=0"`
}
