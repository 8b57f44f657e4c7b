package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/hypeshelf/internal/domain"
)

// UserService resolves callers to local user records.
type UserService interface {
	GetOrCreateUser(ctx context.Context, externalID, email, name string) (*domain.User, error)
	GetCurrentUser(ctx context.Context) (*domain.User, error)
	GetCurrentUserRole(ctx context.Context) (*domain.Role, error)
}

// UserHandler handles user endpoints.
type UserHandler struct {
	users UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

type createUserRequest struct {
	ExternalID string `json:"external_id" validate:"required"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type roleResponse struct {
	Role domain.Role `json:"role"`
}

// GetOrCreate registers the caller on first sight and returns their record.
func (h *UserHandler) GetOrCreate(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.users.GetOrCreateUser(c.Request().Context(), req.ExternalID, req.Email, req.Name)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, user)
}

// Me returns the caller's record, or null when anonymous or unregistered.
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.users.GetCurrentUser(c.Request().Context())
	if err != nil {
		return err
	}
	if user == nil {
		return JSON(c, http.StatusOK, nil)
	}
	return JSON(c, http.StatusOK, user)
}

// MyRole returns the caller's role, or null when anonymous or unregistered.
func (h *UserHandler) MyRole(c echo.Context) error {
	role, err := h.users.GetCurrentUserRole(c.Request().Context())
	if err != nil {
		return err
	}
	if role == nil {
		return JSON(c, http.StatusOK, nil)
	}
	return JSON(c, http.StatusOK, roleResponse{Role: *role})
}
