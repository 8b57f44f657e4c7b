package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sumire/hypeshelf/internal/domain"
)

// UserLookup resolves a subject to its local user.
type UserLookup interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
}

// Gate derives the authorization facts used to guard mutations.
type Gate struct {
	users UserLookup
}

// NewGate creates a new Gate.
func NewGate(users UserLookup) *Gate {
	return &Gate{users: users}
}

// RequireIdentity returns the caller identity or ErrUnauthenticated.
func RequireIdentity(ctx context.Context) (domain.Identity, error) {
	identity, ok := domain.IdentityFromContext(ctx)
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return identity, nil
}

// RequireAuthenticated resolves the caller to a local user. An identity
// without a local record yields ErrUserNotFound; the client is expected to
// call GetOrCreateUser first.
func (g *Gate) RequireAuthenticated(ctx context.Context) (*domain.User, error) {
	identity, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	user, err := g.users.FindByExternalID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve caller: %w", err)
	}
	return user, nil
}

// RequireAdmin fails with ErrAdminRequired unless user is an admin.
func RequireAdmin(user domain.User) error {
	if !user.IsAdmin() {
		return domain.ErrAdminRequired
	}
	return nil
}
