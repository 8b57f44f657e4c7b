package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/hypeshelf/internal/domain"
)

// RecommendationService is the recommendation surface used by the HTTP layer.
type RecommendationService interface {
	Add(ctx context.Context, title string, genre domain.Genre, link, blurb string) (int64, error)
	ListAll(ctx context.Context, genre *domain.Genre) ([]domain.RecommendationWithOwner, error)
	ListPublic(ctx context.Context) ([]domain.PublicRecommendation, error)
	Delete(ctx context.Context, id int64) error
	SetStaffPick(ctx context.Context, id int64, desired bool) error
}

// RecommendationHandler handles recommendation endpoints.
type RecommendationHandler struct {
	recs RecommendationService
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recs RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recs: recs}
}

type addRecommendationRequest struct {
	Title string `json:"title"`
	Genre string `json:"genre" validate:"required,oneof=horror action comedy drama sci-fi other"`
	Link  string `json:"link"`
	Blurb string `json:"blurb"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

type staffPickRequest struct {
	IsStaffPick *bool `json:"is_staff_pick" validate:"required"`
}

// List returns every recommendation newest first, optionally filtered by genre.
func (h *RecommendationHandler) List(c echo.Context) error {
	var genre *domain.Genre
	if raw := c.QueryParam("genre"); raw != "" {
		g, err := domain.ParseGenre(raw)
		if err != nil {
			return err
		}
		genre = &g
	}

	recs, err := h.recs.ListAll(c.Request().Context(), genre)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, recs)
}

// ListPublic returns the latest recommendations for anonymous visitors.
func (h *RecommendationHandler) ListPublic(c echo.Context) error {
	recs, err := h.recs.ListPublic(c.Request().Context())
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, recs)
}

// Create adds a recommendation owned by the caller.
func (h *RecommendationHandler) Create(c echo.Context) error {
	var req addRecommendationRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id, err := h.recs.Add(c.Request().Context(), req.Title, domain.Genre(req.Genre), req.Link, req.Blurb)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, createdResponse{ID: id})
}

// Delete removes a recommendation.
func (h *RecommendationHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.recs.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStaffPick sets or clears the staff pick flag.
func (h *RecommendationHandler) SetStaffPick(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req staffPickRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.recs.SetStaffPick(c.Request().Context(), id, *req.IsStaffPick); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid recommendation id", domain.ErrInvalidInput)
	}
	return id, nil
}
