// Package services implements the application use cases on top of the
// repositories and the auth primitives.
package services

import (
	"context"

	"pairchat/domain"
	"pairchat/repositories"
)

// IdentityService resolves participant identifiers to registered accounts.
// All lookups normalize the identifier first, so "Alice@Example.COM " and
// "alice@example.com" are the same person everywhere in the system.
type IdentityService struct {
	users repositories.IUserRepository
}

func NewIdentityService(users repositories.IUserRepository) *IdentityService {
	return &IdentityService{users: users}
}

func (s *IdentityService) ByEmail(ctx context.Context, identifier string) (domain.User, error) {
	return s.users.GetByEmail(ctx, domain.NormalizeIdentifier(identifier))
}

func (s *IdentityService) ByID(ctx context.Context, id int64) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}
