// Package store provides durable persistence for accounts and saved games
// atop BadgerDB, following the key/value-with-JSON-values convention the
// wider example corpus uses for embedded storage.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	accountPrefix   = "account/"
	savedGamePrefix = "savedgame/"
)

// Account is a registered player's persistent profile.
type Account struct {
	Username         string    `json:"username"`
	PasswordHash     string    `json:"password_hash"`
	Rating           int       `json:"rating"`
	GamesPlayed      int       `json:"games_played"`
	Wins             int       `json:"wins"`
	Losses           int       `json:"losses"`
	Draws            int       `json:"draws"`
	RegistrationDate time.Time `json:"registration_date"`
	LastLogin        time.Time `json:"last_login"`
	SavedGameIDs     []string  `json:"saved_game_ids"`
}

// DefaultRating is the rating assigned to a freshly registered account.
const DefaultRating = 1200

// NewAccount builds an Account with the default rating and registration
// timestamp set to now.
func NewAccount(username, passwordHash string, now time.Time) *Account {
	return &Account{
		Username:         username,
		PasswordHash:     passwordHash,
		Rating:           DefaultRating,
		RegistrationDate: now,
		LastLogin:        now,
	}
}

// SavedGame is a persisted record of a completed or in-progress game.
type SavedGame struct {
	ID      string    `json:"id"`
	White   string    `json:"white"`
	Black   string    `json:"black"`
	PGN     string    `json:"pgn"`
	FEN     string    `json:"fen"`
	Result  string    `json:"result"`
	SavedAt time.Time `json:"saved_at"`
}

// Store wraps a BadgerDB handle with account and saved-game operations.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a BadgerDB database rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a transient, non-persistent database, used by tests
// and by short-lived tooling that has no need to durably persist state.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open in-memory: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ErrNotFound is returned by lookups that find no matching record.
var ErrNotFound = fmt.Errorf("store: not found")

// CreateAccount persists a new account, failing if username is already
// taken.
func (s *Store) CreateAccount(acct *Account) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(accountPrefix + acct.Username)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("store: account %q already exists", acct.Username)
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		data, err := json.Marshal(acct)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// LoadAccount retrieves an account by username.
func (s *Store) LoadAccount(username string) (*Account, error) {
	var acct Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountPrefix + username))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &acct)
		})
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// SaveAccount overwrites an existing account's record, e.g. after a rating
// update or a new saved game being appended.
func (s *Store) SaveAccount(acct *Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(accountPrefix+acct.Username), data)
	})
}

// Leaderboard returns the top n accounts by rating, descending.
func (s *Store) Leaderboard(n int) ([]*Account, error) {
	var accounts []*Account
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(accountPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var acct Account
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &acct)
			}); err != nil {
				return err
			}
			accounts = append(accounts, &acct)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Rating > accounts[j].Rating
	})
	if n > 0 && len(accounts) > n {
		accounts = accounts[:n]
	}
	return accounts, nil
}

// SaveGame persists a completed or in-progress game record.
func (s *Store) SaveGame(g *SavedGame) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(savedGamePrefix+g.ID), data)
	})
}

// LoadGame retrieves a saved game by id.
func (s *Store) LoadGame(id string) (*SavedGame, error) {
	var g SavedGame
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(savedGamePrefix + id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &g)
		})
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}
