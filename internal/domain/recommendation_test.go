package domain

import (
	"errors"
	"strings"
	"testing"
)

func validNew() NewRecommendation {
	return NewRecommendation{UserID: 1, Title: "Heat", Genre: GenreAction, Link: "https://example.com/heat", Blurb: "Pacino vs De Niro."}
}

func TestNewRecommendation_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*NewRecommendation)
		wantField string
	}{
		{"valid", func(*NewRecommendation) {}, ""},
		{"title at limit", func(n *NewRecommendation) { n.Title = strings.Repeat("a", MaxTitleLength) }, ""},
		{"multibyte title at limit", func(n *NewRecommendation) { n.Title = strings.Repeat("é", MaxTitleLength) }, ""},
		{"empty title", func(n *NewRecommendation) { n.Title = "" }, "title"},
		{"title over limit", func(n *NewRecommendation) { n.Title = strings.Repeat("a", MaxTitleLength+1) }, "title"},
		{"blurb over limit", func(n *NewRecommendation) { n.Blurb = strings.Repeat("b", MaxBlurbLength+1) }, "blurb"},
		{"empty link", func(n *NewRecommendation) { n.Link = "" }, "link"},
		{"link over limit", func(n *NewRecommendation) { n.Link = strings.Repeat("l", MaxLinkLength+1) }, "link"},
		{"unknown genre", func(n *NewRecommendation) { n.Genre = "western" }, "genre"},
		{"title checked before blurb", func(n *NewRecommendation) { n.Title = ""; n.Blurb = "" }, "title"},
		{"blurb checked before link", func(n *NewRecommendation) { n.Blurb = ""; n.Link = "" }, "blurb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := validNew()
			tt.mutate(&n)

			err := n.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, verr.Field)
			}
		})
	}
}

func TestParseGenre(t *testing.T) {
	for _, g := range Genres {
		got, err := ParseGenre(string(g))
		if err != nil || got != g {
			t.Errorf("ParseGenre(%q) = %q, %v", g, got, err)
		}
	}
	if _, err := ParseGenre("Horror"); err == nil {
		t.Error("genres are case sensitive")
	}
}

func TestCanDelete(t *testing.T) {
	owner := User{ID: 1, Role: RoleMember}
	other := User{ID: 2, Role: RoleMember}
	admin := User{ID: 3, Role: RoleAdmin}
	rec := Recommendation{ID: 10, UserID: owner.ID}

	if !CanDelete(owner, rec) {
		t.Error("owner should be able to delete")
	}
	if CanDelete(other, rec) {
		t.Error("other member should not be able to delete")
	}
	if !CanDelete(admin, rec) {
		t.Error("admin should be able to delete")
	}
}
