package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrDegraded     = errors.New("storage degraded")
)

// Store persists games and their append-only move logs.
// Writes may be asynchronous; a store that fails a write reports itself unhealthy
// and drops further writes rather than blocking play.
type Store interface {
	RecordNewGame(record GameRecord) error
	RecordMove(record MoveRecord) error
	DeleteUndoneMoves(gameID string, afterMoveNumber int) error
	UpdateGameState(gameID, state, winner string) error
	DeleteGame(gameID string) error

	QueryGames(gameID, playerID string) ([]GameRecord, error)
	LoadMoves(gameID string) ([]MoveRecord, error)

	// Flush blocks until previously queued writes have been applied
	Flush(ctx context.Context) error
	IsHealthy() bool
	InitDB() error
	DeleteDB() error
	Close() error
}

// Open selects a backend by driver name: "sqlite" takes a file path or DSN,
// "badger" a directory
func Open(driver, path string, devMode bool) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(path, devMode)
	case "badger":
		return NewBadgerStore(path)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}

// writeOp is one queued write. A nil fn is a flush marker; done, when set, is closed
// once the op has been processed or skipped.
type writeOp struct {
	fn   func(*sql.Tx) error
	done chan struct{}
}

// SQLiteStore handles SQLite database operations with async writes
type SQLiteStore struct {
	db           *sql.DB
	path         string
	writeChan    chan writeOp
	healthStatus atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	closeOnce    sync.Once
	closeErr     error
}

// NewSQLiteStore creates a new storage instance with async writer
func NewSQLiteStore(dataSourceName string, devMode bool) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode in development for better concurrency
	if devMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Single connection keeps the pragma above in effect for every statement
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithCancel(context.Background())

	s := &SQLiteStore{
		db:        db,
		path:      dataSourceName,
		writeChan: make(chan writeOp, 1000), // Buffered for async writes
		ctx:       ctx,
		cancel:    cancel,
	}

	// Initialize health as true
	s.healthStatus.Store(true)

	// Start async writer
	s.wg.Add(1)
	go s.writerLoop()

	return s, nil
}

// IsHealthy returns true if the storage is operational
func (s *SQLiteStore) IsHealthy() bool {
	return s.healthStatus.Load()
}

// writerLoop processes async write operations
func (s *SQLiteStore) writerLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			// Drain remaining writes with timeout
			deadline := time.After(2 * time.Second)
			for {
				select {
				case op := <-s.writeChan:
					s.process(op)
				case <-deadline:
					return
				default:
					return
				}
			}

		case op := <-s.writeChan:
			s.process(op)
		}
	}
}

func (s *SQLiteStore) process(op writeOp) {
	if op.done != nil {
		defer close(op.done)
	}
	// Skip if already degraded
	if op.fn == nil || !s.healthStatus.Load() {
		return
	}
	s.executeWrite(op.fn)
}

// executeWrite runs a transactional write operation
func (s *SQLiteStore) executeWrite(fn func(*sql.Tx) error) {
	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("Storage degraded: failed to begin transaction: %v", err)
		s.healthStatus.Store(false)
		return
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		log.Printf("Storage degraded: write operation failed: %v", err)
		s.healthStatus.Store(false)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("Storage degraded: failed to commit: %v", err)
		s.healthStatus.Store(false)
		return
	}
}

// enqueue hands a write to the writer loop, dropping it if degraded or the queue is full
func (s *SQLiteStore) enqueue(what string, fn func(*sql.Tx) error) error {
	if !s.healthStatus.Load() {
		return nil // Silently drop if degraded
	}

	select {
	case s.writeChan <- writeOp{fn: fn}:
		return nil
	default:
		// Channel full, drop write
		log.Printf("Storage write queue full, dropping %s", what)
		return nil
	}
}

// Flush waits for the writer loop to reach a marker queued behind pending writes
func (s *SQLiteStore) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.writeChan <- writeOp{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if !s.healthStatus.Load() {
		return ErrDegraded
	}
	return nil
}

// Close gracefully closes the database connection
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		// Signal writer to stop
		s.cancel()

		// Wait for writer with timeout
		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Writer finished cleanly
		case <-time.After(2 * time.Second):
			log.Printf("Warning: storage writer shutdown timeout, some writes may be lost")
		}

		if s.db != nil {
			s.closeErr = s.db.Close()
		}
	})
	return s.closeErr
}

// InitDB creates the database schema
func (s *SQLiteStore) InitDB() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return tx.Commit()
}

// DeleteDB removes the database file
func (s *SQLiteStore) DeleteDB() error {
	// Close connection first
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// DESTRUCTIVE: Removes database file
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete database file: %w", err)
	}

	return nil
}
