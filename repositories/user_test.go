package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	errs "pairchat/errors"
)

func newTestUsers(t *testing.T) *UserRepository {
	t.Helper()
	repo, err := NewUserRepository(newTestDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestCreateAndLookupUser(t *testing.T) {
	req := require.New(t)
	repo := newTestUsers(t)

	// When registering an account
	created, err := repo.Create(context.Background(), "Alice", "alice@example.com", "hash")
	req.NoError(err)
	req.Positive(created.ID)

	// Then it is reachable by email and by id
	byEmail, err := repo.GetByEmail(context.Background(), "alice@example.com")
	req.NoError(err)
	req.Equal(created.ID, byEmail.ID)

	byID, err := repo.GetByID(context.Background(), created.ID)
	req.NoError(err)
	req.Equal("alice@example.com", byID.Email)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	req := require.New(t)
	repo := newTestUsers(t)

	_, err := repo.Create(context.Background(), "Alice", "alice@example.com", "hash")
	req.NoError(err)

	_, err = repo.Create(context.Background(), "Imposter", "alice@example.com", "hash")
	req.ErrorIs(err, errs.ErrUserAlreadyExists)
}

func TestLookupUnknownUser(t *testing.T) {
	req := require.New(t)
	repo := newTestUsers(t)

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	req.ErrorIs(err, errs.ErrNotFound)

	_, err = repo.GetByID(context.Background(), 42)
	req.ErrorIs(err, errs.ErrNotFound)
}

func TestAddContact(t *testing.T) {
	req := require.New(t)
	repo := newTestUsers(t)

	_, err := repo.Create(context.Background(), "Alice", "alice@example.com", "hash")
	req.NoError(err)
	_, err = repo.Create(context.Background(), "Bob", "bob@example.com", "hash")
	req.NoError(err)

	// When adding an existing account as contact
	updated, err := repo.AddContact(context.Background(), "alice@example.com", "bob@example.com")
	req.NoError(err)
	req.Equal([]string{"bob@example.com"}, updated.Contacts)

	// Then adding it again is a conflict
	_, err = repo.AddContact(context.Background(), "alice@example.com", "bob@example.com")
	req.ErrorIs(err, errs.ErrContactAlreadyAdded)

	// And unknown contacts are rejected
	_, err = repo.AddContact(context.Background(), "alice@example.com", "ghost@example.com")
	req.ErrorIs(err, errs.ErrNotFound)
}

func TestCredentials(t *testing.T) {
	req := require.New(t)
	repo := newTestUsers(t)

	_, err := repo.Create(context.Background(), "Alice", "alice@example.com", "argon2-hash")
	req.NoError(err)

	hash, err := repo.Credentials(context.Background(), "alice@example.com")
	req.NoError(err)
	req.Equal("argon2-hash", hash)
}
