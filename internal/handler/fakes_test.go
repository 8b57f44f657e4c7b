package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/sumire/hypeshelf/internal/domain"
	"github.com/sumire/hypeshelf/internal/service"
)

type mockTokenService struct {
	identities map[string]domain.Identity

	googleCallbackFn func(ctx context.Context, code string) (domain.Identity, *service.TokenPair, error)
	issueTokensFn    func(identity domain.Identity) (*service.TokenPair, error)
	refreshFn        func(refreshToken string) (*service.TokenPair, error)
}

func (m *mockTokenService) ValidateToken(token string) (domain.Identity, error) {
	identity, ok := m.identities[token]
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return identity, nil
}

func (m *mockTokenService) GoogleAuthURL(state string) string {
	return "https://accounts.example/google?state=" + state
}

func (m *mockTokenService) GitHubAuthURL(state string) string {
	return "https://accounts.example/github?state=" + state
}

func (m *mockTokenService) GoogleCallback(ctx context.Context, code string) (domain.Identity, *service.TokenPair, error) {
	return m.googleCallbackFn(ctx, code)
}

func (m *mockTokenService) GitHubCallback(context.Context, string) (domain.Identity, *service.TokenPair, error) {
	return domain.Identity{}, nil, domain.ErrUnauthenticated
}

func (m *mockTokenService) IssueTokens(identity domain.Identity) (*service.TokenPair, error) {
	return m.issueTokensFn(identity)
}

func (m *mockTokenService) RefreshAccessToken(refreshToken string) (*service.TokenPair, error) {
	return m.refreshFn(refreshToken)
}

type mockUserService struct {
	getOrCreateFn func(ctx context.Context, externalID, email, name string) (*domain.User, error)
	currentFn     func(ctx context.Context) (*domain.User, error)
	roleFn        func(ctx context.Context) (*domain.Role, error)
}

func (m *mockUserService) GetOrCreateUser(ctx context.Context, externalID, email, name string) (*domain.User, error) {
	return m.getOrCreateFn(ctx, externalID, email, name)
}

func (m *mockUserService) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	return m.currentFn(ctx)
}

func (m *mockUserService) GetCurrentUserRole(ctx context.Context) (*domain.Role, error) {
	return m.roleFn(ctx)
}

type mockRecommendationService struct {
	addFn          func(ctx context.Context, title string, genre domain.Genre, link, blurb string) (int64, error)
	listAllFn      func(ctx context.Context, genre *domain.Genre) ([]domain.RecommendationWithOwner, error)
	listPublicFn   func(ctx context.Context) ([]domain.PublicRecommendation, error)
	deleteFn       func(ctx context.Context, id int64) error
	setStaffPickFn func(ctx context.Context, id int64, desired bool) error
}

func (m *mockRecommendationService) Add(ctx context.Context, title string, genre domain.Genre, link, blurb string) (int64, error) {
	return m.addFn(ctx, title, genre, link, blurb)
}

func (m *mockRecommendationService) ListAll(ctx context.Context, genre *domain.Genre) ([]domain.RecommendationWithOwner, error) {
	return m.listAllFn(ctx, genre)
}

func (m *mockRecommendationService) ListPublic(ctx context.Context) ([]domain.PublicRecommendation, error) {
	return m.listPublicFn(ctx)
}

func (m *mockRecommendationService) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

func (m *mockRecommendationService) SetStaffPick(ctx context.Context, id int64, desired bool) error {
	return m.setStaffPickFn(ctx, id, desired)
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type httpRecorderSpy struct {
	requests []recordedRequest
}

func (s *httpRecorderSpy) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	s.requests = append(s.requests, recordedRequest{method: method, route: route, status: status})
}

const (
	memberToken = "member-token"
	adminToken  = "admin-token"
)

type testServer struct {
	tokens  *mockTokenService
	users   *mockUserService
	recs    *mockRecommendationService
	metrics *httpRecorderSpy
	cfg     RouterConfig
}

func newTestServer() *testServer {
	s := &testServer{
		tokens: &mockTokenService{identities: map[string]domain.Identity{
			memberToken: {Subject: "google:member", Email: "member@example.com", Name: "Member"},
			adminToken:  {Subject: "google:admin", Email: "admin@example.com", Name: "Admin"},
		}},
		users:   &mockUserService{},
		recs:    &mockRecommendationService{},
		metrics: &httpRecorderSpy{},
	}
	s.cfg = RouterConfig{
		Auth:            s.tokens,
		Users:           s.users,
		Recommendations: s.recs,
		Metrics:         s.metrics,
	}
	return s
}

func (s *testServer) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	NewRouter(s.cfg).ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return env
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assertStatus(t, rec, status)
	env := decodeEnvelope(t, rec)
	if env.Error == nil {
		t.Fatalf("expected error %q, got none: %s", code, rec.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("expected error code %q, got %q", code, env.Error.Code)
	}
}
