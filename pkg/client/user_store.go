package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"locus/pkg/store"

	"github.com/dgraph-io/badger/v4"
)

// userKey is where the logged-in user is kept. Its absence means nobody is
// logged in.
var userKey = []byte("user")

// UserStore persists the authenticated user between runs.
type UserStore struct {
	db *badger.DB
}

// OpenUserStore opens (creating if needed) the store in dir.
func OpenUserStore(dir string) (*UserStore, error) {
	if dir == "" {
		return nil, errors.New("user store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", dir, err)
	}
	return openUserStore(badger.DefaultOptions(dir).WithSyncWrites(true))
}

// OpenInMemoryUserStore opens a store that forgets everything on Close.
func OpenInMemoryUserStore() (*UserStore, error) {
	return openUserStore(badger.DefaultOptions("").WithInMemory(true))
}

func openUserStore(opts badger.Options) (*UserStore, error) {
	db, err := badger.Open(opts.WithLogger(nil).WithNumVersionsToKeep(1))
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	return &UserStore{db: db}, nil
}

// Load returns the stored user, reporting false when there is none.
func (s *UserStore) Load() (store.User, bool, error) {
	var u store.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &u)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.User{}, false, nil
	}
	if err != nil {
		return store.User{}, false, fmt.Errorf("load user: %w", err)
	}
	return u, true, nil
}

func (s *UserStore) Save(u store.User) error {
	val, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey, val)
	})
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Clear forgets the stored user.
func (s *UserStore) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(userKey)
	})
	if err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	return nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}
