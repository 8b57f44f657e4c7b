package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sumire/hypeshelf/internal/domain"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"

	breakerName = "oauth-profile"
)

// BreakerObserver receives circuit breaker state changes.
type BreakerObserver interface {
	SetBreakerState(name string, state float64)
}

// profileClient fetches provider profiles behind a circuit breaker so a
// failing provider does not tie up login requests.
type profileClient struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[domain.Identity]

	googleUserInfoURL string
	githubUserURL     string
	githubEmailsURL   string
}

func newProfileClient(client *http.Client, observer BreakerObserver) *profileClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	cb := gobreaker.NewCircuitBreaker[domain.Identity](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			if observer != nil {
				observer.SetBreakerState(name, breakerStateValue(to))
			}
		},
	})

	return &profileClient{
		http:              client,
		breaker:           cb,
		googleUserInfoURL: googleUserInfoURL,
		githubUserURL:     githubUserURL,
		githubEmailsURL:   githubEmailsURL,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (p *profileClient) google(ctx context.Context, accessToken string) (domain.Identity, error) {
	return p.breaker.Execute(func() (domain.Identity, error) {
		var info googleUserInfo
		if err := p.getJSON(ctx, p.googleUserInfoURL, accessToken, &info); err != nil {
			return domain.Identity{}, err
		}
		if info.ID == "" {
			return domain.Identity{}, errors.New("google profile has no id")
		}
		return domain.Identity{
			Subject: "google:" + info.ID,
			Email:   info.Email,
			Name:    info.Name,
		}, nil
	})
}

type githubUserInfo struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

func (p *profileClient) github(ctx context.Context, accessToken string) (domain.Identity, error) {
	return p.breaker.Execute(func() (domain.Identity, error) {
		var info githubUserInfo
		if err := p.getJSON(ctx, p.githubUserURL, accessToken, &info); err != nil {
			return domain.Identity{}, err
		}
		if info.ID == 0 {
			return domain.Identity{}, errors.New("github profile has no id")
		}

		email := info.Email
		if email == "" {
			var emails []githubEmail
			if err := p.getJSON(ctx, p.githubEmailsURL, accessToken, &emails); err != nil {
				return domain.Identity{}, err
			}
			email = primaryEmail(emails)
		}

		name := info.Name
		if name == "" {
			name = info.Login
		}
		return domain.Identity{
			Subject: "github:" + strconv.FormatInt(info.ID, 10),
			Email:   email,
			Name:    name,
		}, nil
	})
}

func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

func (p *profileClient) getJSON(ctx context.Context, url, accessToken string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
