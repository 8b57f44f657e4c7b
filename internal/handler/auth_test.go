package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/sumire/hypeshelf/internal/domain"
	"github.com/sumire/hypeshelf/internal/service"
)

func TestAuthHandler_GoogleRedirect_SetsState(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/api/v1/auth/google", "", "")

	assertStatus(t, rec, http.StatusTemporaryRedirect)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != oauthStateCookie || cookies[0].Value == "" {
		t.Fatalf("expected an oauth state cookie, got %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("expected state cookie to be HttpOnly")
	}
	if loc := rec.Header().Get("Location"); !strings.HasSuffix(loc, "state="+cookies[0].Value) {
		t.Errorf("expected redirect to carry state, got %q", loc)
	}
}

func callbackRequest(state, cookieState, code string) *http.Request {
	target := "/api/v1/auth/google/callback?state=" + state
	if code != "" {
		target += "&code=" + code
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: cookieState})
	}
	return req
}

func TestAuthHandler_GoogleCallback(t *testing.T) {
	s := newTestServer()
	s.tokens.googleCallbackFn = func(_ context.Context, code string) (domain.Identity, *service.TokenPair, error) {
		if code != "abc" {
			t.Errorf("expected code abc, got %q", code)
		}
		return domain.Identity{Subject: "google:1", Name: "G"}, &service.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}, nil
	}

	rec := httptest.NewRecorder()
	NewRouter(s.cfg).ServeHTTP(rec, callbackRequest("xyz", "xyz", "abc"))

	assertStatus(t, rec, http.StatusOK)
	var resp loginResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Identity.Subject != "google:1" || resp.Tokens.AccessToken != "a" {
		t.Errorf("unexpected login response: %+v", resp)
	}
}

func TestAuthHandler_GoogleCallback_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		state       string
		cookieState string
		code        string
	}{
		{"missing cookie", "xyz", "", "abc"},
		{"state mismatch", "xyz", "other", "abc"},
		{"missing code", "xyz", "xyz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.tokens.googleCallbackFn = func(context.Context, string) (domain.Identity, *service.TokenPair, error) {
				t.Fatal("provider must not be called")
				return domain.Identity{}, nil, nil
			}

			rec := httptest.NewRecorder()
			NewRouter(s.cfg).ServeHTTP(rec, callbackRequest(tt.state, tt.cookieState, tt.code))

			assertErrorCode(t, rec, http.StatusBadRequest, "invalid_input")
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	s := newTestServer()
	s.tokens.refreshFn = func(token string) (*service.TokenPair, error) {
		if token != "good-refresh" {
			return nil, domain.ErrUnauthenticated
		}
		return &service.TokenPair{AccessToken: "new"}, nil
	}

	rec := s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", `{"refresh_token":"good-refresh"}`)
	assertStatus(t, rec, http.StatusOK)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", `{"refresh_token":"stale"}`)
	assertErrorCode(t, rec, http.StatusUnauthorized, "unauthenticated")

	rec = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", `{}`)
	assertErrorCode(t, rec, http.StatusBadRequest, "validation_error")
}

func TestAuthHandler_DevToken(t *testing.T) {
	s := newTestServer()
	s.tokens.issueTokensFn = func(identity domain.Identity) (*service.TokenPair, error) {
		return &service.TokenPair{AccessToken: "dev-" + identity.Subject}, nil
	}

	rec := s.do(t, http.MethodPost, "/api/v1/auth/dev-token", "", `{"sub":"dev:admin"}`)
	assertStatus(t, rec, http.StatusNotFound)

	s.cfg.DevLogin = true
	rec = s.do(t, http.MethodPost, "/api/v1/auth/dev-token", "", `{"sub":"dev:admin","name":"Alex Admin"}`)
	assertStatus(t, rec, http.StatusOK)

	var resp loginResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Tokens.AccessToken != "dev-dev:admin" || resp.Identity.Name != "Alex Admin" {
		t.Errorf("unexpected dev login response: %+v", resp)
	}
}
