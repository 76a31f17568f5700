package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"pairchat/domain"
	errs "pairchat/errors"
)

const (
	userPrefix      = "user:"
	userIDPrefix    = "uid:"
	userSequenceKey = "seq:user"
)

// IUserRepository is the account store contract. Emails are expected in
// normalized form; callers go through the identity service first.
type IUserRepository interface {
	Create(ctx context.Context, name, email, hashedPassword string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	AddContact(ctx context.Context, email, contact string) (domain.User, error)
	Credentials(ctx context.Context, email string) (string, error)
}

// UserRepository persists accounts under user:{email} with a uid:{id}
// secondary index pointing back at the email key.
type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

type storedUser struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Password  string   `json:"password"`
	Contacts  []string `json:"contacts,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("%w: user sequence: %v", errs.ErrStorage, err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

func (u *UserRepository) Close() error {
	return u.seq.Release()
}

// Create registers a new account. The email is the uniqueness key.
func (u *UserRepository) Create(ctx context.Context, name, email, hashedPassword string) (domain.User, error) {
	next, err := u.seq.Next()
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: next user id: %v", errs.ErrStorage, err)
	}
	rec := storedUser{
		// Badger sequences start at zero; user ids start at one.
		ID:        int64(next) + 1,
		Email:     email,
		Name:      name,
		Password:  hashedPassword,
		CreatedAt: time.Now().UTC().UnixNano(),
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(email))
		if err == nil {
			return errs.ErrUserAlreadyExists
		}
		if err != badger.ErrKeyNotFound {
			return fmt.Errorf("%w: check user: %v", errs.ErrStorage, err)
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: encode user: %v", errs.ErrStorage, err)
		}
		if err := txn.Set(userKey(email), value); err != nil {
			return fmt.Errorf("%w: store user: %v", errs.ErrStorage, err)
		}
		return txn.Set(userIDKey(rec.ID), []byte(email))
	})
	if err != nil {
		return domain.User{}, err
	}
	return userFromStored(rec), nil
}

func (u *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, userKey(email), &rec)
	})
	if err != nil {
		return domain.User{}, err
	}
	return userFromStored(rec), nil
}

func (u *UserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	var rec storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err == badger.ErrKeyNotFound {
			return errs.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: read user index: %v", errs.ErrStorage, err)
		}
		var email []byte
		if email, err = item.ValueCopy(nil); err != nil {
			return fmt.Errorf("%w: read user index: %v", errs.ErrStorage, err)
		}
		return readJSON(txn, userKey(string(email)), &rec)
	})
	if err != nil {
		return domain.User{}, err
	}
	return userFromStored(rec), nil
}

// AddContact appends the contact to the owner's list. Both accounts must
// exist; adding the same contact twice is a conflict.
func (u *UserRepository) AddContact(ctx context.Context, email, contact string) (domain.User, error) {
	var rec storedUser
	err := u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(contact)); err == badger.ErrKeyNotFound {
			return errs.ErrNotFound
		} else if err != nil {
			return fmt.Errorf("%w: check contact: %v", errs.ErrStorage, err)
		}
		if err := readJSON(txn, userKey(email), &rec); err != nil {
			return err
		}
		if lo.Contains(rec.Contacts, contact) {
			return errs.ErrContactAlreadyAdded
		}
		rec.Contacts = append(rec.Contacts, contact)
		value, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: encode user: %v", errs.ErrStorage, err)
		}
		return txn.Set(userKey(email), value)
	})
	if err != nil {
		return domain.User{}, err
	}
	return userFromStored(rec), nil
}

// Credentials returns the stored password hash of the account.
func (u *UserRepository) Credentials(ctx context.Context, email string) (string, error) {
	var rec storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		return readJSON(txn, userKey(email), &rec)
	})
	if err != nil {
		return "", err
	}
	return rec.Password, nil
}

func readJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return errs.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", errs.ErrStorage, key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, out); err != nil {
			return fmt.Errorf("%w: decode %s: %v", errs.ErrStorage, key, err)
		}
		return nil
	})
}

func userKey(email string) []byte {
	return []byte(userPrefix + email)
}

func userIDKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", userIDPrefix, id))
}

func userFromStored(rec storedUser) domain.User {
	return domain.User{
		ID:        rec.ID,
		Email:     rec.Email,
		Name:      rec.Name,
		Contacts:  rec.Contacts,
		CreatedAt: time.Unix(0, rec.CreatedAt).UTC(),
	}
}
