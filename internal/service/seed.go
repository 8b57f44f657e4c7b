package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sumire/hypeshelf/internal/domain"
)

// SeedStore is the recommendation access needed by Seeder.
type SeedStore interface {
	RecommendationStore
	ListTitles(ctx context.Context) (map[string]int64, error)
}

// SeedAccount describes a demo user.
type SeedAccount struct {
	ExternalID string
	Email      string
	Name       string
}

// SeedAccounts are the demo admin and member. The external ids match subjects
// that the dev token endpoint can mint.
type SeedAccounts struct {
	Admin  SeedAccount
	Member SeedAccount
}

// DefaultSeedAccounts returns the demo accounts.
func DefaultSeedAccounts() SeedAccounts {
	return SeedAccounts{
		Admin:  SeedAccount{ExternalID: "dev:admin", Email: "admin@hypeshelf.dev", Name: "Alex Admin"},
		Member: SeedAccount{ExternalID: "dev:member", Email: "user@hypeshelf.dev", Name: "Jordan User"},
	}
}

type seedRecommendation struct {
	byAdmin   bool
	title     string
	genre     domain.Genre
	link      string
	blurb     string
	staffPick bool
}

var seedRecommendations = []seedRecommendation{
	{
		byAdmin: true,
		title:   "Us",
		genre:   domain.GenreHorror,
		link:    "https://www.imdb.com/title/tt6857112/",
		blurb:   "Jordan Peele's terrifying doppelganger thriller that explores America's dark underbelly.",
	},
	{
		byAdmin:   true,
		title:     "Interstellar",
		genre:     domain.GenreSciFi,
		link:      "https://www.imdb.com/title/tt0816692/",
		blurb:     "Christopher Nolan's epic space odyssey about love transcending dimensions.",
		staffPick: true,
	},
	{
		byAdmin: true,
		title:   "The Dark Knight",
		genre:   domain.GenreAction,
		link:    "https://www.imdb.com/title/tt0468569/",
		blurb:   "Heath Ledger's iconic Joker performance in the definitive Batman film.",
	},
	{
		title: "Parasite",
		genre: domain.GenreDrama,
		link:  "https://www.imdb.com/title/tt6751668/",
		blurb: "Bong Joon-ho's Oscar-winning masterpiece about class warfare in South Korea.",
	},
	{
		title: "Everything Everywhere All at Once",
		genre: domain.GenreComedy,
		link:  "https://www.imdb.com/title/tt6710474/",
		blurb: "A mind-bending multiverse adventure about a laundromat owner saving reality.",
	},
}

// SeedStatus reports what happened to one demo recommendation.
type SeedStatus string

const (
	SeedCreated SeedStatus = "created"
	SeedSkipped SeedStatus = "skipped"
)

// SeedOutcome is the per-title result of a seed run.
type SeedOutcome struct {
	Title  string     `json:"title"`
	ID     int64      `json:"id"`
	Status SeedStatus `json:"status"`
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Admin           domain.User   `json:"admin"`
	Member          domain.User   `json:"member"`
	Recommendations []SeedOutcome `json:"recommendations"`
}

// Seeder loads demo data. Running it twice changes nothing.
type Seeder struct {
	users    UserStore
	recs     SeedStore
	tx       Transactor
	accounts SeedAccounts
	recorder Recorder
}

// NewSeeder creates a new Seeder. recorder may be nil.
func NewSeeder(users UserStore, recs SeedStore, tx Transactor, accounts SeedAccounts, recorder Recorder) *Seeder {
	return &Seeder{
		users:    users,
		recs:     recs,
		tx:       tx,
		accounts: accounts,
		recorder: orNop(recorder),
	}
}

// Seed creates the demo users and recommendations and makes the demo staff
// pick the only one.
func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	var result SeedResult
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		admin, err := s.ensureUser(ctx, s.accounts.Admin, domain.RoleAdmin)
		if err != nil {
			return err
		}
		member, err := s.ensureUser(ctx, s.accounts.Member, domain.RoleMember)
		if err != nil {
			return err
		}
		result.Admin, result.Member = *admin, *member

		existing, err := s.recs.ListTitles(ctx)
		if err != nil {
			return err
		}

		var staffPickID int64
		for _, sr := range seedRecommendations {
			outcome := SeedOutcome{Title: sr.title, Status: SeedSkipped}
			if id, ok := existing[sr.title]; ok {
				outcome.ID = id
			} else {
				owner := member.ID
				if sr.byAdmin {
					owner = admin.ID
				}
				id, err := s.recs.Create(ctx, domain.NewRecommendation{
					UserID: owner,
					Title:  sr.title,
					Genre:  sr.genre,
					Link:   sr.link,
					Blurb:  sr.blurb,
				})
				if err != nil {
					return fmt.Errorf("seed %q: %w", sr.title, err)
				}
				outcome.ID, outcome.Status = id, SeedCreated
				s.recorder.RecordRecommendationCreated(string(sr.genre))
			}
			if sr.staffPick {
				staffPickID = outcome.ID
			}
			result.Recommendations = append(result.Recommendations, outcome)
		}

		if staffPickID != 0 {
			return assignStaffPick(ctx, s.recs, s.recorder, staffPickID, true)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	slog.Info("seed complete", "admin_id", result.Admin.ID, "member_id", result.Member.ID, "recommendations", len(result.Recommendations))
	return &result, nil
}

func (s *Seeder) ensureUser(ctx context.Context, acct SeedAccount, role domain.Role) (*domain.User, error) {
	user, created, err := s.users.Create(ctx, domain.User{
		ExternalID:  acct.ExternalID,
		Email:       acct.Email,
		DisplayName: acct.Name,
		Role:        role,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", acct.ExternalID, err)
	}
	if created {
		s.recorder.RecordUserCreated()
	}
	// Only the admin account is promoted; an existing member keeps whatever role it was given.
	if role == domain.RoleAdmin && !user.IsAdmin() {
		return s.users.UpdateRole(ctx, acct.ExternalID, role)
	}
	return user, nil
}
