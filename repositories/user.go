package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"groovon/contract"
	"groovon/domain/chat"
	"groovon/domain/event"
	"groovon/errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

var _ contract.ProfileStore = (*UserRepository)(nil)

type IUserRepository interface {
	contract.ProfileStore
	CreateAccount(ctx context.Context, email, passwordHash, displayName string) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	GetProfile(userID string) (chat.Profile, bool, error)
	EnsureProfile(ctx context.Context, profile chat.Profile) error
}

// Account holds the credentials of a local user.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// UserRepository stores accounts ("account:{email}") and the public
// "users" documents ("user:{id}") read by every message render.
type UserRepository struct {
	db       *badger.DB
	registry contract.IRegistry
	now      func() time.Time
}

func NewUserRepository(db *badger.DB, registry contract.IRegistry) *UserRepository {
	return &UserRepository{db: db, registry: registry, now: time.Now}
}

func accountKey(email string) []byte {
	return []byte("account:" + normalizeEmail(email))
}

func profileKey(userID string) []byte {
	return []byte("user:" + userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount persists the credentials and the default profile document
// in one transaction. It returns ErrUserAlreadyExists for a taken email.
func (u *UserRepository) CreateAccount(ctx context.Context, email, passwordHash, displayName string) (Account, error) {
	account := Account{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: passwordHash,
		Roles:        []string{"user"},
		CreatedAt:    u.now().UTC(),
	}
	profile := chat.Profile{ID: account.ID, DisplayName: account.DisplayName}.WithDefaults()

	err := u.db.Update(func(txn *badger.Txn) error {
		key := accountKey(email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		accountRecord, err := encodeAccount(account)
		if err != nil {
			return err
		}
		if err := txn.Set(key, accountRecord); err != nil {
			return err
		}
		return setProfile(txn, profileRecord{Profile: profile, UpdatedAt: account.CreatedAt})
	})
	if err != nil {
		return Account{}, err
	}
	u.registry.Publish(ctx, event.ProfileChanged{UserID: account.ID})
	return account, nil
}

func (u *UserRepository) GetAccountByEmail(email string) (Account, error) {
	var account Account
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			account, err = decodeAccount(val)
			return err
		})
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// GetProfile reads the users document as stored, without placeholders.
func (u *UserRepository) GetProfile(userID string) (chat.Profile, bool, error) {
	var record profileRecord
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		record, err = readProfile(txn, userID)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return chat.Profile{ID: userID}, false, nil
	}
	if err != nil {
		return chat.Profile{}, false, err
	}
	return record.Profile, true, nil
}

// EnsureProfile creates the users document with defaults when missing.
func (u *UserRepository) EnsureProfile(ctx context.Context, profile chat.Profile) error {
	created := false
	err := u.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(profileKey(profile.ID))
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		created = true
		return setProfile(txn, profileRecord{
			Profile:   profile.WithDefaults(),
			UpdatedAt: u.now().UTC(),
		})
	})
	if err != nil {
		return err
	}
	if created {
		u.registry.Publish(ctx, event.ProfileChanged{UserID: profile.ID})
	}
	return nil
}

// MergeProfile applies a partial update, creating the document if needed.
func (u *UserRepository) MergeProfile(ctx context.Context, userID string, patch chat.ProfilePatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		record, err := readProfile(txn, userID)
		if err != nil && !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		record.Profile = patch.Apply(record.Profile)
		record.Profile.ID = userID
		record.UpdatedAt = u.now().UTC()
		return setProfile(txn, record)
	})
	if err != nil {
		return fmt.Errorf("merge profile %s: %w", userID, err)
	}
	u.registry.Publish(ctx, event.ProfileChanged{UserID: userID})
	return nil
}

// WatchProfile re-reads the users document on every write to it.
func (u *UserRepository) WatchProfile(ctx context.Context, userID string,
	onProfile func(profile chat.Profile, exists bool), onError func(error)) (contract.Subscription, error) {
	return watch(ctx, u.registry, event.ProfileTopic(userID), func() error {
		profile, exists, err := u.GetProfile(userID)
		if err != nil {
			return err
		}
		onProfile(profile, exists)
		return nil
	}, onError)
}

func setProfile(txn *badger.Txn, record profileRecord) error {
	b, err := encodeProfile(record)
	if err != nil {
		return err
	}
	return txn.Set(profileKey(record.Profile.ID), b)
}

func readProfile(txn *badger.Txn, userID string) (profileRecord, error) {
	item, err := txn.Get(profileKey(userID))
	if err != nil {
		return profileRecord{}, err
	}
	var record profileRecord
	err = item.Value(func(val []byte) error {
		record, err = decodeProfile(val)
		return err
	})
	return record, err
}
