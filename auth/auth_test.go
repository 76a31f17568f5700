package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pairchat/domain"
	errs "pairchat/errors"
)

func TestHashAndVerifyPassword(t *testing.T) {
	req := require.New(t)

	// Given a hashed password
	encoded, err := HashPassword("correct horse battery 1")
	req.NoError(err)
	req.Contains(encoded, "$argon2id$")

	// Then the right password verifies and the wrong one does not
	req.NoError(VerifyPassword("correct horse battery 1", encoded))
	req.ErrorIs(VerifyPassword("wrong password 1", encoded), errs.ErrInvalidCredentials)
}

func TestHashesAreSalted(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("same password 1")
	req.NoError(err)
	second, err := HashPassword("same password 1")
	req.NoError(err)

	req.NotEqual(first, second)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	req := require.New(t)
	req.ErrorIs(VerifyPassword("whatever", "not-a-hash"), errs.ErrInvalidCredentials)
}

func newTestTokens(ttl time.Duration) *TokenManager {
	return NewTokenManager([]byte("test-secret-at-least-32-bytes-long"), "pairchat", ttl)
}

func TestGenerateAndValidateToken(t *testing.T) {
	req := require.New(t)
	tokens := newTestTokens(time.Hour)
	user := domain.User{ID: 7, Email: "alice@example.com"}

	signed, err := tokens.Generate(user)
	req.NoError(err)

	claims, err := tokens.Validate(signed)
	req.NoError(err)
	req.Equal(int64(7), claims.UserID)
	req.Equal("alice@example.com", claims.Email)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	tokens := newTestTokens(-time.Minute)

	signed, err := tokens.Generate(domain.User{ID: 7, Email: "alice@example.com"})
	req.NoError(err)

	_, err = tokens.Validate(signed)
	req.ErrorIs(err, errs.ErrTokenInvalid)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	req := require.New(t)
	ours := newTestTokens(time.Hour)
	theirs := NewTokenManager([]byte("another-secret-that-is-long-enough"), "pairchat", time.Hour)

	signed, err := theirs.Generate(domain.User{ID: 7, Email: "alice@example.com"})
	req.NoError(err)

	_, err = ours.Validate(signed)
	req.ErrorIs(err, errs.ErrTokenInvalid)
}

func TestValidateRegister(t *testing.T) {
	req := require.New(t)

	valid := RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "long enough pass 1"}
	req.NoError(ValidateRegister(valid))

	badEmail := valid
	badEmail.Email = "not-an-email"
	req.ErrorIs(ValidateRegister(badEmail), errs.ErrValidation)

	short := valid
	short.Password = "short1"
	req.ErrorIs(ValidateRegister(short), errs.ErrValidation)

	noDigit := valid
	noDigit.Password = "only letters here now"
	req.ErrorIs(ValidateRegister(noDigit), errs.ErrInvalidPassword)
}

func TestMiddleware(t *testing.T) {
	req := require.New(t)
	tokens := newTestTokens(time.Hour)

	var seen domain.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		req.True(ok)
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware(tokens)(next)

	// Without a token the request never reaches the handler
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	req.Equal(http.StatusUnauthorized, rec.Code)

	// With a valid token the identity is attached to the context
	signed, err := tokens.Generate(domain.User{ID: 3, Email: "alice@example.com"})
	req.NoError(err)
	request := httptest.NewRequest(http.MethodGet, "/users", nil)
	request.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request)
	req.Equal(http.StatusNoContent, rec.Code)
	req.Equal(domain.Identity{UserID: 3, Email: "alice@example.com"}, seen)
}
