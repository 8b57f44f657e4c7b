package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sumire/hypeshelf/internal/domain"
)

// RecommendationStore defines the recommendation data access interface.
type RecommendationStore interface {
	Create(ctx context.Context, rec domain.NewRecommendation) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Recommendation, error)
	List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.RecommendationWithOwner, error)
	ListPublic(ctx context.Context, limit int) ([]domain.PublicRecommendation, error)
	FindStaffPicks(ctx context.Context) ([]domain.Recommendation, error)
	SetStaffPick(ctx context.Context, id int64, value bool) error
	Delete(ctx context.Context, id int64) error
}

// Transactor runs fn as one storage transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecommendationService implements the recommendation feed operations.
type RecommendationService struct {
	recs     RecommendationStore
	tx       Transactor
	gate     *Gate
	recorder Recorder
}

// NewRecommendationService creates a new RecommendationService. recorder may be nil.
func NewRecommendationService(recs RecommendationStore, tx Transactor, gate *Gate, recorder Recorder) *RecommendationService {
	return &RecommendationService{
		recs:     recs,
		tx:       tx,
		gate:     gate,
		recorder: orNop(recorder),
	}
}

// Add creates a recommendation owned by the caller and returns its ID.
func (s *RecommendationService) Add(ctx context.Context, title string, genre domain.Genre, link, blurb string) (int64, error) {
	user, err := s.gate.RequireAuthenticated(ctx)
	if err != nil {
		return 0, err
	}

	rec := domain.NewRecommendation{
		UserID: user.ID,
		Title:  title,
		Genre:  genre,
		Link:   link,
		Blurb:  blurb,
	}
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	id, err := s.recs.Create(ctx, rec)
	if err != nil {
		return 0, err
	}

	s.recorder.RecordRecommendationCreated(string(genre))
	slog.Info("recommendation created", "recommendation_id", id, "user_id", user.ID, "genre", genre)
	return id, nil
}

// ListAll returns every recommendation, or only those of genre when non-nil,
// newest first and joined with the owner.
func (s *RecommendationService) ListAll(ctx context.Context, genre *domain.Genre) ([]domain.RecommendationWithOwner, error) {
	if _, err := RequireIdentity(ctx); err != nil {
		return nil, err
	}
	if genre != nil {
		if _, err := domain.ParseGenre(string(*genre)); err != nil {
			return nil, err
		}
	}
	return s.recs.List(ctx, domain.RecommendationFilter{Genre: genre})
}

// ListPublic returns the newest recommendations for anonymous visitors.
func (s *RecommendationService) ListPublic(ctx context.Context) ([]domain.PublicRecommendation, error) {
	return s.recs.ListPublic(ctx, domain.PublicFeedLimit)
}

// Delete removes a recommendation. Only its owner or an admin may do so.
func (s *RecommendationService) Delete(ctx context.Context, id int64) error {
	var byOwner bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		user, err := s.gate.RequireAuthenticated(ctx)
		if err != nil {
			return err
		}

		rec, err := s.recs.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !domain.CanDelete(*user, *rec) {
			return fmt.Errorf("%w: recommendation %d belongs to another user", domain.ErrForbidden, id)
		}
		byOwner = rec.IsOwnedBy(*user)

		return s.recs.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.recorder.RecordRecommendationDeleted(byOwner)
	slog.Info("recommendation deleted", "recommendation_id", id, "by_owner", byOwner)
	return nil
}

// SetStaffPick sets or clears the staff pick flag. Setting it moves the flag
// off any other recommendation in the same transaction.
func (s *RecommendationService) SetStaffPick(ctx context.Context, id int64, desired bool) error {
	user, err := s.gate.RequireAuthenticated(ctx)
	if err != nil {
		return err
	}
	if err := RequireAdmin(*user); err != nil {
		return err
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		return assignStaffPick(ctx, s.recs, s.recorder, id, desired)
	})
	if err != nil {
		return err
	}

	s.recorder.RecordStaffPickChange(desired)
	slog.Info("staff pick updated", "recommendation_id", id, "value", desired, "admin_id", user.ID)
	return nil
}

// assignStaffPick must run inside a transaction.
func assignStaffPick(ctx context.Context, recs RecommendationStore, recorder Recorder, id int64, desired bool) error {
	if _, err := recs.FindByID(ctx, id); err != nil {
		return err
	}

	if desired {
		holders, err := recs.FindStaffPicks(ctx)
		if err != nil {
			return err
		}
		if len(holders) > 1 {
			recorder.RecordStaffPickAnomaly()
			slog.Warn("multiple staff picks found, repairing", "count", len(holders), "target_id", id)
		}
		for _, h := range holders {
			if h.ID == id {
				continue
			}
			if err := recs.SetStaffPick(ctx, h.ID, false); err != nil {
				return fmt.Errorf("clear staff pick %d: %w", h.ID, err)
			}
		}
	}

	return recs.SetStaffPick(ctx, id, desired)
}
