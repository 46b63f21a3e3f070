package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key layout
const (
	prefixGame = "game/"
	prefixMove = "move/"
)

func gameKey(gameID string) []byte { return []byte(prefixGame + gameID) }

func movePrefix(gameID string) []byte { return []byte(prefixMove + gameID + "/") }

// moveKey zero-pads the move number so key order is move order
func moveKey(gameID string, moveNumber int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", prefixMove, gameID, moveNumber))
}

// BadgerStore keeps games and moves as JSON values in an embedded key/value store.
// Writes are synchronous.
type BadgerStore struct {
	db           *badger.DB
	path         string
	healthStatus atomic.Bool
	closeOnce    sync.Once
	closeErr     error
}

// NewBadgerStore opens the database directory at path; an empty path or ":memory:"
// keeps everything in memory
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" || path == ":memory:" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	s := &BadgerStore{db: db, path: path}
	s.healthStatus.Store(true)
	return s, nil
}

func (s *BadgerStore) IsHealthy() bool {
	return s.healthStatus.Load()
}

// write runs fn in an update transaction, degrading the store on failure
func (s *BadgerStore) write(what string, fn func(txn *badger.Txn) error) error {
	if !s.healthStatus.Load() {
		return nil // Silently drop if degraded
	}
	if err := s.db.Update(fn); err != nil {
		log.Printf("Storage degraded: %s failed: %v", what, err)
		s.healthStatus.Store(false)
		return err
	}
	return nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func getGame(txn *badger.Txn, gameID string) (GameRecord, error) {
	var record GameRecord
	item, err := txn.Get(gameKey(gameID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return record, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	})
	return record, err
}

// moveKeys lists the move keys of a game in order
func moveKeys(txn *badger.Txn, gameID string) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = movePrefix(gameID)
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

func (s *BadgerStore) RecordNewGame(record GameRecord) error {
	return s.write("game record", func(txn *badger.Txn) error {
		if _, err := txn.Get(gameKey(record.GameID)); err == nil {
			return fmt.Errorf("game %s already exists", record.GameID)
		}
		record.UpdatedAtUTC = record.StartTimeUTC
		return setJSON(txn, gameKey(record.GameID), record)
	})
}

func (s *BadgerStore) RecordMove(record MoveRecord) error {
	return s.write("move record", func(txn *badger.Txn) error {
		if _, err := getGame(txn, record.GameID); err != nil {
			return err
		}
		key := moveKey(record.GameID, record.MoveNumber)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("move %d of game %s already recorded", record.MoveNumber, record.GameID)
		}
		return setJSON(txn, key, record)
	})
}

func (s *BadgerStore) DeleteUndoneMoves(gameID string, afterMoveNumber int) error {
	return s.write("undo operation", func(txn *badger.Txn) error {
		prefix := string(movePrefix(gameID))
		for _, key := range moveKeys(txn, gameID) {
			n, err := strconv.Atoi(strings.TrimPrefix(string(key), prefix))
			if err != nil {
				return fmt.Errorf("bad move key %q: %w", key, err)
			}
			if n > afterMoveNumber {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *BadgerStore) UpdateGameState(gameID, state, winner string) error {
	return s.write("state update", func(txn *badger.Txn) error {
		record, err := getGame(txn, gameID)
		if err != nil {
			return err
		}
		record.State = state
		record.Winner = winner
		record.UpdatedAtUTC = time.Now().UTC()
		return setJSON(txn, gameKey(gameID), record)
	})
}

func (s *BadgerStore) DeleteGame(gameID string) error {
	return s.write("game deletion", func(txn *badger.Txn) error {
		for _, key := range moveKeys(txn, gameID) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete(gameKey(gameID))
	})
}

// QueryGames mirrors the SQLite filter: "" or "*" matches everything, newest first
func (s *BadgerStore) QueryGames(gameID, playerID string) ([]GameRecord, error) {
	var games []GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixGame)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var g GameRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &g)
			}); err != nil {
				return err
			}
			if gameID != "" && gameID != "*" && g.GameID != gameID {
				continue
			}
			if playerID != "" && playerID != "*" && g.WhitePlayerID != playerID && g.BlackPlayerID != playerID {
				continue
			}
			games = append(games, g)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	sort.SliceStable(games, func(i, j int) bool {
		return games[i].StartTimeUTC.After(games[j].StartTimeUTC)
	})
	return games, nil
}

func (s *BadgerStore) LoadMoves(gameID string) ([]MoveRecord, error) {
	var moves []MoveRecord
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getGame(txn, gameID); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = movePrefix(gameID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m MoveRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			moves = append(moves, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moves, nil
}

// Flush is a no-op: badger writes complete before returning
func (s *BadgerStore) Flush(ctx context.Context) error {
	return ctx.Err()
}

// InitDB is a no-op beyond opening; the key layout needs no schema
func (s *BadgerStore) InitDB() error {
	return nil
}

func (s *BadgerStore) DeleteDB() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if s.path == "" || s.path == ":memory:" {
		return nil
	}

	// DESTRUCTIVE: Removes database directory
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("failed to delete database directory: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

var _ Store = (*BadgerStore)(nil)
