package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/hypeshelf/internal/domain"
	"github.com/sumire/hypeshelf/internal/service"
)

const oauthStateCookie = "oauth_state"

// TokenService is the identity provider surface used by the HTTP layer.
type TokenService interface {
	TokenValidator
	GoogleAuthURL(state string) string
	GitHubAuthURL(state string) string
	GoogleCallback(ctx context.Context, code string) (domain.Identity, *service.TokenPair, error)
	GitHubCallback(ctx context.Context, code string) (domain.Identity, *service.TokenPair, error)
	IssueTokens(identity domain.Identity) (*service.TokenPair, error)
	RefreshAccessToken(refreshToken string) (*service.TokenPair, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth TokenService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginResponse struct {
	Identity domain.Identity    `json:"identity"`
	Tokens   *service.TokenPair `json:"tokens"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type devTokenRequest struct {
	Subject string `json:"sub" validate:"required"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// GoogleRedirect redirects the user to Google's OAuth consent page.
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	state, err := generateState()
	if err != nil {
		return err
	}
	setStateCookie(c, state)
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GoogleAuthURL(state))
}

// GoogleCallback handles the OAuth callback from Google.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	code, err := callbackCode(c)
	if err != nil {
		return err
	}

	identity, tokens, err := h.auth.GoogleCallback(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, loginResponse{Identity: identity, Tokens: tokens})
}

// GitHubRedirect redirects the user to GitHub's OAuth consent page.
func (h *AuthHandler) GitHubRedirect(c echo.Context) error {
	state, err := generateState()
	if err != nil {
		return err
	}
	setStateCookie(c, state)
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GitHubAuthURL(state))
}

// GitHubCallback handles the OAuth callback from GitHub.
func (h *AuthHandler) GitHubCallback(c echo.Context) error {
	code, err := callbackCode(c)
	if err != nil {
		return err
	}

	identity, tokens, err := h.auth.GitHubCallback(c.Request().Context(), code)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, loginResponse{Identity: identity, Tokens: tokens})
}

// Refresh generates a new token pair from a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	tokens, err := h.auth.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, tokens)
}

// DevToken mints tokens for an arbitrary subject. Only routed when dev login
// is enabled.
func (h *AuthHandler) DevToken(c echo.Context) error {
	var req devTokenRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	identity := domain.Identity{Subject: req.Subject, Email: req.Email, Name: req.Name}
	tokens, err := h.auth.IssueTokens(identity)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, loginResponse{Identity: identity, Tokens: tokens})
}

func callbackCode(c echo.Context) (string, error) {
	if err := validateOAuthState(c); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	clearStateCookie(c)

	code := c.QueryParam("code")
	if code == "" {
		return "", fmt.Errorf("%w: missing code parameter", domain.ErrInvalidInput)
	}
	return code, nil
}

func setStateCookie(c echo.Context, state string) {
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((10 * time.Minute).Seconds()),
	})
}

func clearStateCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func validateOAuthState(c echo.Context) error {
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil {
		return fmt.Errorf("missing oauth state cookie")
	}
	if c.QueryParam("state") != cookie.Value {
		return fmt.Errorf("oauth state mismatch")
	}
	return nil
}
