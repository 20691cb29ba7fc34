package repositories

import (
	stderrors "errors"
	"groovon/contract"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.KeyValueStore = (*LocalStore)(nil)

// LocalStore is the durable device-local key-value storage.
// It lives in its own BadgerDB directory, apart from the shared log.
type LocalStore struct {
	db *badger.DB
}

func NewLocalStore(db *badger.DB) *LocalStore {
	return &LocalStore{db: db}
}

func localKey(key string) []byte {
	return []byte("local:" + key)
}

func (s *LocalStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(localKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *LocalStore) Set(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(localKey(key), []byte(value))
	})
}

func (s *LocalStore) Remove(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(localKey(key))
	})
}
