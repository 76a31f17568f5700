package services

import (
	"context"
	stderrors "errors"
	"log/slog"

	"pairchat/auth"
	"pairchat/domain"
	errs "pairchat/errors"
	"pairchat/repositories"
)

// AuthResult carries the account and its freshly issued access token.
type AuthResult struct {
	User  domain.User
	Token string
}

// AuthService handles registration, login and contact management.
type AuthService struct {
	log    *slog.Logger
	users  repositories.IUserRepository
	tokens *auth.TokenManager
}

func NewAuthService(log *slog.Logger, users repositories.IUserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{log: log, users: users, tokens: tokens}
}

// Register validates the request, hashes the password and creates the
// account. The email is normalized before it becomes the account key.
func (s *AuthService) Register(ctx context.Context, req auth.RegisterRequest) (AuthResult, error) {
	req.Email = domain.NormalizeIdentifier(req.Email)
	if err := auth.ValidateRegister(req); err != nil {
		return AuthResult{}, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return AuthResult{}, err
	}
	user, err := s.users.Create(ctx, req.Name, req.Email, hashed)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user registered", "user", user.Email, "id", user.ID)
	return AuthResult{User: user, Token: token}, nil
}

// Login checks the credentials and issues a token. Unknown accounts and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req auth.LoginRequest) (AuthResult, error) {
	req.Email = domain.NormalizeIdentifier(req.Email)
	if err := auth.ValidateLogin(req); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.users.Credentials(ctx, req.Email)
	if stderrors.Is(err, errs.ErrNotFound) {
		return AuthResult{}, errs.ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}
	if err := auth.VerifyPassword(req.Password, hash); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return AuthResult{}, err
	}
	token, err := s.tokens.Generate(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.Info("user logged in", "user", user.Email)
	return AuthResult{User: user, Token: token}, nil
}

// AddContact links another registered account to the caller's contact list.
func (s *AuthService) AddContact(ctx context.Context, owner domain.Identity, contact string) (domain.User, error) {
	normalized := domain.NormalizeIdentifier(contact)
	if err := auth.ValidateContact(auth.ContactRequest{Email: normalized}); err != nil {
		return domain.User{}, err
	}
	return s.users.AddContact(ctx, owner.Email, normalized)
}

// Profile returns the caller's account.
func (s *AuthService) Profile(ctx context.Context, owner domain.Identity) (domain.User, error) {
	return s.users.GetByEmail(ctx, owner.Email)
}
