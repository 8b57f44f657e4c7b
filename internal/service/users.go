package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sumire/hypeshelf/internal/domain"
)

// UserStore defines the user data access interface consumed by the services.
type UserStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	Create(ctx context.Context, user domain.User) (*domain.User, bool, error)
	UpdateRole(ctx context.Context, externalID string, role domain.Role) (*domain.User, error)
}

// Recorder receives domain events for metrics.
type Recorder interface {
	RecordRecommendationCreated(genre string)
	RecordRecommendationDeleted(byOwner bool)
	RecordStaffPickChange(value bool)
	RecordStaffPickAnomaly()
	RecordUserCreated()
}

type nopRecorder struct{}

func (nopRecorder) RecordRecommendationCreated(string) {}
func (nopRecorder) RecordRecommendationDeleted(bool)   {}
func (nopRecorder) RecordStaffPickChange(bool)         {}
func (nopRecorder) RecordStaffPickAnomaly()            {}
func (nopRecorder) RecordUserCreated()                 {}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// UserService resolves external identities to local users.
type UserService struct {
	users    UserStore
	recorder Recorder
}

// NewUserService creates a new UserService. recorder may be nil.
func NewUserService(users UserStore, recorder Recorder) *UserService {
	return &UserService{users: users, recorder: orNop(recorder)}
}

// GetOrCreateUser returns the local user for externalID, creating it with the
// member role on first sight. The caller must be authenticated as externalID.
func (s *UserService) GetOrCreateUser(ctx context.Context, externalID, email, name string) (*domain.User, error) {
	identity, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if identity.Subject != externalID {
		return nil, fmt.Errorf("%w: external id does not match the authenticated identity", domain.ErrForbidden)
	}

	user, err := s.users.FindByExternalID(ctx, externalID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	user, created, err := s.users.Create(ctx, domain.User{
		ExternalID:  externalID,
		Email:       email,
		DisplayName: name,
		Role:        domain.RoleMember,
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.recorder.RecordUserCreated()
		slog.Info("user created", "user_id", user.ID, "external_id", externalID)
	}
	return user, nil
}

// GetCurrentUser returns the caller's local user, or nil when the caller is
// anonymous or has no local record yet.
func (s *UserService) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	identity, ok := domain.IdentityFromContext(ctx)
	if !ok {
		return nil, nil
	}

	user, err := s.users.FindByExternalID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetCurrentUserRole returns the caller's role, or nil if unknown.
func (s *UserService) GetCurrentUserRole(ctx context.Context) (*domain.Role, error) {
	user, err := s.GetCurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}
	role := user.Role
	return &role, nil
}

// SetRole changes a user's role. It is an operator action with no HTTP route.
func (s *UserService) SetRole(ctx context.Context, externalID string, role domain.Role) (*domain.User, error) {
	if _, err := domain.ParseRole(string(role)); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateRole(ctx, externalID, role)
	if err != nil {
		return nil, fmt.Errorf("set role for %s: %w", externalID, err)
	}
	slog.Info("user role changed", "user_id", user.ID, "role", role)
	return user, nil
}
