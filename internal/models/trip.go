package models

import "strings"

// Trip is a planned trip owned by one user.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// OwnerID is the user who created the trip.
	OwnerID string

	Title       string
	Description string

	// Area is the trip's location, used for filtering and area rankings.
	Area string

	// Days is the planned length of the trip.
	Days int

	// Tags is a comma-separated tag list, e.g. "beach, food".
	Tags string

	// StartDate and EndDate are "YYYY-MM-DD"; either may be empty.
	StartDate string
	EndDate   string

	// ViewCount is incremented each time the public trip page is viewed.
	ViewCount int64

	CreatedVia string
	CreatedAt  int64
	UpdatedAt  int64
}

// TagList splits Tags into trimmed, non-empty tags.
func (t *Trip) TagList() []string {
	return SplitTags(t.Tags)
}

// SplitTags splits a comma-separated tag string into trimmed, non-empty tags.
func SplitTags(tags string) []string {
	var out []string
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// TripUpdate carries a partial trip update; nil fields are left unchanged.
type TripUpdate struct {
	Title       *string
	Description *string
	Area        *string
	Days        *int
	Tags        *string
	StartDate   *string
	EndDate     *string
}

// TripFilter narrows a public trip listing. Empty fields are ignored and
// non-empty ones are combined with AND.
type TripFilter struct {
	Area      string // exact match
	Tag       string // substring of Tags
	StartDate string // StartDate >= this
	EndDate   string // EndDate <= this
	Search    string // substring of title, description, area or tags
}

// TripQuery is a filtered, sorted, paged trip listing request.
type TripQuery struct {
	Filter TripFilter
	Sort   string // one of the whitelisted sort fields
	Desc   bool
	Limit  int
	Offset int
}

// RankingKind selects how trips are ranked.
type RankingKind string

const (
	RankByViews RankingKind = "view"
	RankByArea  RankingKind = "area"
	RankByDate  RankingKind = "date"
)

// ParseRankingKind maps a request value to a RankingKind; anything unknown
// ranks by views.
func ParseRankingKind(s string) RankingKind {
	switch RankingKind(s) {
	case RankByArea, RankByDate:
		return RankingKind(s)
	default:
		return RankByViews
	}
}

// RankedTrip is a ranking entry. AreaCount is only set for area rankings.
type RankedTrip struct {
	Trip
	AreaCount int64
}
