package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/hypeshelf/internal/domain"
)

const recommendationColumns = `id, user_id, title, genre, link, blurb, is_staff_pick, created_at`

// RecommendationRepository handles recommendation data access operations.
type RecommendationRepository struct {
	db *sqlx.DB
}

// NewRecommendationRepository creates a new RecommendationRepository.
func NewRecommendationRepository(db *sqlx.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// Create inserts a recommendation with the staff pick flag cleared and returns its ID.
func (r *RecommendationRepository) Create(ctx context.Context, rec domain.NewRecommendation) (int64, error) {
	var id int64
	err := conn(ctx, r.db).QueryRowxContext(ctx,
		`INSERT INTO recommendations (user_id, title, genre, link, blurb, is_staff_pick)
		 VALUES ($1, $2, $3, $4, $5, FALSE)
		 RETURNING id`,
		rec.UserID, rec.Title, string(rec.Genre), rec.Link, rec.Blurb,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create recommendation: %w", translate(err))
	}
	return id, nil
}

// FindByID retrieves a recommendation by its ID.
func (r *RecommendationRepository) FindByID(ctx context.Context, id int64) (*domain.Recommendation, error) {
	var rec domain.Recommendation
	err := conn(ctx, r.db).GetContext(ctx, &rec,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find recommendation by id %d: %w", id, err)
	}
	return &rec, nil
}

type recommendationOwnerRow struct {
	domain.Recommendation
	OwnerName sql.NullString `db:"owner_name"`
}

// List returns recommendations newest first, joined with their owner.
func (r *RecommendationRepository) List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.RecommendationWithOwner, error) {
	var (
		where []string
		args  []any
	)
	if filter.Genre != nil {
		args = append(args, string(*filter.Genre))
		where = append(where, fmt.Sprintf("r.genre = $%d", len(args)))
	}

	query := `SELECT r.id, r.user_id, r.title, r.genre, r.link, r.blurb, r.is_staff_pick, r.created_at,
	                 u.display_name AS owner_name
	          FROM recommendations r
	          LEFT JOIN users u ON u.id = r.user_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY r.created_at DESC, r.id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []recommendationOwnerRow
	if err := conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	out := make([]domain.RecommendationWithOwner, 0, len(rows))
	for _, row := range rows {
		name := domain.UnknownOwnerName
		if row.OwnerName.Valid {
			name = row.OwnerName.String
		}
		out = append(out, domain.RecommendationWithOwner{
			Recommendation: row.Recommendation,
			Owner:          domain.Owner{ID: row.UserID, Name: name},
		})
	}
	return out, nil
}

// ListPublic returns at most limit recommendations newest first, with the owner's display name only.
func (r *RecommendationRepository) ListPublic(ctx context.Context, limit int) ([]domain.PublicRecommendation, error) {
	var recs []domain.PublicRecommendation
	err := conn(ctx, r.db).SelectContext(ctx, &recs,
		`SELECT r.id, r.title, r.genre, r.link, r.blurb, r.is_staff_pick, r.created_at,
		        COALESCE(u.display_name, $2) AS user_name
		 FROM recommendations r
		 LEFT JOIN users u ON u.id = r.user_id
		 ORDER BY r.created_at DESC, r.id DESC
		 LIMIT $1`, limit, domain.UnknownOwnerName)
	if err != nil {
		return nil, fmt.Errorf("list public recommendations: %w", err)
	}
	return recs, nil
}

// ListTitles returns the title of every recommendation mapped to its ID.
func (r *RecommendationRepository) ListTitles(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ID    int64  `db:"id"`
		Title string `db:"title"`
	}
	if err := conn(ctx, r.db).SelectContext(ctx, &rows,
		`SELECT id, title FROM recommendations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list recommendation titles: %w", err)
	}

	titles := make(map[string]int64, len(rows))
	for _, row := range rows {
		if _, ok := titles[row.Title]; !ok {
			titles[row.Title] = row.ID
		}
	}
	return titles, nil
}

// FindStaffPicks returns every recommendation carrying the staff pick flag.
// More than one row means the invariant was violated.
func (r *RecommendationRepository) FindStaffPicks(ctx context.Context) ([]domain.Recommendation, error) {
	var recs []domain.Recommendation
	err := conn(ctx, r.db).SelectContext(ctx, &recs,
		`SELECT `+recommendationColumns+` FROM recommendations WHERE is_staff_pick ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("find staff picks: %w", err)
	}
	return recs, nil
}

// SetStaffPick writes the staff pick flag of one recommendation.
func (r *RecommendationRepository) SetStaffPick(ctx context.Context, id int64, value bool) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE recommendations SET is_staff_pick = $2 WHERE id = $1`, id, value)
	if err != nil {
		return fmt.Errorf("set staff pick on %d: %w", id, translate(err))
	}
	return expectOneRow(res, id)
}

// Delete removes a recommendation.
func (r *RecommendationRepository) Delete(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM recommendations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete recommendation %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
