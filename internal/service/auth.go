package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/sumire/hypeshelf/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// AuthConfig holds OAuth and token configuration.
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	JWTSecret          string
	CallbackBaseURL    string
	AccessTTL          time.Duration
	RefreshTTL         time.Duration
	Breaker            BreakerObserver
}

// AuthService is the identity provider adapter: it runs the OAuth login and
// issues and verifies identity tokens. It never touches local user records.
type AuthService struct {
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	google     *oauth2.Config
	github     *oauth2.Config
	profiles   *profileClient
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg AuthConfig) *AuthService {
	accessTTL, refreshTTL := cfg.AccessTTL, cfg.RefreshTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}

	return &AuthService{
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		google: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     googleOAuth.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.CallbackBaseURL + "/api/v1/auth/google/callback",
		},
		github: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
			RedirectURL:  cfg.CallbackBaseURL + "/api/v1/auth/github/callback",
		},
		profiles: newProfileClient(nil, cfg.Breaker),
	}
}

// GoogleAuthURL returns the Google OAuth authorization URL.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.google.AuthCodeURL(state)
}

// GitHubAuthURL returns the GitHub OAuth authorization URL.
func (s *AuthService) GitHubAuthURL(state string) string {
	return s.github.AuthCodeURL(state)
}

// TokenPair holds an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IdentityClaims are the JWT claims describing a caller.
type IdentityClaims struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// GoogleCallback exchanges the authorization code and returns the identity with a token pair.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (domain.Identity, *TokenPair, error) {
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, nil, fmt.Errorf("google token exchange: %w", err)
	}

	identity, err := s.profiles.google(ctx, token.AccessToken)
	if err != nil {
		return domain.Identity{}, nil, fmt.Errorf("fetch google profile: %w", err)
	}

	pair, err := s.IssueTokens(identity)
	if err != nil {
		return domain.Identity{}, nil, err
	}
	return identity, pair, nil
}

// GitHubCallback exchanges the authorization code and returns the identity with a token pair.
func (s *AuthService) GitHubCallback(ctx context.Context, code string) (domain.Identity, *TokenPair, error) {
	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		return domain.Identity{}, nil, fmt.Errorf("github token exchange: %w", err)
	}

	identity, err := s.profiles.github(ctx, token.AccessToken)
	if err != nil {
		return domain.Identity{}, nil, fmt.Errorf("fetch github profile: %w", err)
	}

	pair, err := s.IssueTokens(identity)
	if err != nil {
		return domain.Identity{}, nil, err
	}
	return identity, pair, nil
}

// IssueTokens signs an access and refresh token for identity.
func (s *AuthService) IssueTokens(identity domain.Identity) (*TokenPair, error) {
	if identity.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}

	now := time.Now()
	access, err := s.sign(identity, tokenTypeAccess, now, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.sign(identity, tokenTypeRefresh, now, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// ValidateToken verifies an access token and returns the identity it carries.
func (s *AuthService) ValidateToken(tokenString string) (domain.Identity, error) {
	claims, err := s.parse(tokenString, tokenTypeAccess)
	if err != nil {
		return domain.Identity{}, err
	}
	return claims.identity(), nil
}

// RefreshAccessToken validates a refresh token and returns a new token pair.
func (s *AuthService) RefreshAccessToken(refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return s.IssueTokens(claims.identity())
}

func (s *AuthService) sign(identity domain.Identity, tokenType string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, IdentityClaims{
		Email:     identity.Email,
		Name:      identity.Name,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parse(tokenString, wantType string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Join(domain.ErrUnauthenticated, fmt.Errorf("parse token: %w", err))
	}
	if !token.Valid || claims.TokenType != wantType || claims.Subject == "" {
		return nil, domain.ErrUnauthenticated
	}
	return claims, nil
}

func (c *IdentityClaims) identity() domain.Identity {
	return domain.Identity{
		Subject: c.Subject,
		Email:   c.Email,
		Name:    c.Name,
	}
}
