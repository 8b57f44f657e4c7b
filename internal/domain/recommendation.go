package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Genre is the closed set of recommendation genres.
type Genre string

const (
	GenreHorror Genre = "horror"
	GenreAction Genre = "action"
	GenreComedy Genre = "comedy"
	GenreDrama  Genre = "drama"
	GenreSciFi  Genre = "sci-fi"
	GenreOther  Genre = "other"
)

// Genres lists every valid genre in display order.
var Genres = []Genre{GenreHorror, GenreAction, GenreComedy, GenreDrama, GenreSciFi, GenreOther}

// ParseGenre converts s into a Genre, rejecting anything outside the enum.
func ParseGenre(s string) (Genre, error) {
	for _, g := range Genres {
		if string(g) == s {
			return g, nil
		}
	}
	return "", &ValidationError{
		Field:   "genre",
		Message: fmt.Sprintf("must be one of %v", Genres),
	}
}

// Field bounds, in characters.
const (
	MaxTitleLength = 200
	MaxBlurbLength = 1000
	MaxLinkLength  = 2000
)

// UnknownOwnerName is shown when a recommendation's owner record is missing.
const UnknownOwnerName = "Unknown"

// PublicFeedLimit caps the unauthenticated feed.
const PublicFeedLimit = 10

// Recommendation is a titled, genre-tagged suggestion owned by one user.
type Recommendation struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Genre       Genre     `json:"genre" db:"genre"`
	Link        string    `json:"link" db:"link"`
	Blurb       string    `json:"blurb" db:"blurb"`
	IsStaffPick bool      `json:"is_staff_pick" db:"is_staff_pick"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IsOwnedBy reports whether u created the recommendation.
func (r Recommendation) IsOwnedBy(u User) bool {
	return r.UserID == u.ID
}

// CanDelete reports whether u may remove r.
func CanDelete(u User, r Recommendation) bool {
	return r.IsOwnedBy(u) || u.IsAdmin()
}

// NewRecommendation is the input for creating a recommendation.
type NewRecommendation struct {
	UserID int64
	Title  string
	Genre  Genre
	Link   string
	Blurb  string
}

// Validate checks field bounds in title, blurb, link order.
func (n NewRecommendation) Validate() error {
	if err := checkLength("title", n.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := checkLength("blurb", n.Blurb, MaxBlurbLength); err != nil {
		return err
	}
	if err := checkLength("link", n.Link, MaxLinkLength); err != nil {
		return err
	}
	if _, err := ParseGenre(string(n.Genre)); err != nil {
		return err
	}
	return nil
}

func checkLength(field, value string, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 || n > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be 1-%d characters", max),
		}
	}
	return nil
}

// Owner is the projection of a user attached to an authenticated listing.
type Owner struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RecommendationWithOwner is a recommendation joined with its owner.
type RecommendationWithOwner struct {
	Recommendation
	Owner Owner `json:"owner"`
}

// PublicRecommendation is the narrower projection served without authentication.
type PublicRecommendation struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Genre       Genre     `json:"genre" db:"genre"`
	Link        string    `json:"link" db:"link"`
	Blurb       string    `json:"blurb" db:"blurb"`
	IsStaffPick bool      `json:"is_staff_pick" db:"is_staff_pick"`
	UserName    string    `json:"user_name" db:"user_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// RecommendationFilter narrows a listing.
type RecommendationFilter struct {
	Genre *Genre
	Limit int
}
