package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chessarena/internal/server/core"
	"chessarena/internal/server/game"
	"chessarena/internal/server/storage"
)

const (
	MaxGames = 1000
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")
	ErrTooManyGames = errors.New("game limit reached")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNotAPlayer   = errors.New("player not seated in this game")
)

// entry guards one game. Holding mu is the only way to touch the game, so moves on a
// game are serialized while different games proceed independently.
type entry struct {
	mu   sync.Mutex
	game *game.Game
}

// Service coordinates live games, persistence and change notification
type Service struct {
	games  map[string]*entry
	mu     sync.RWMutex
	store  storage.Store
	waiter *WaitRegistry
}

// New creates a new service instance with optional storage
func New(store storage.Store) *Service {
	return &Service{
		games:  make(map[string]*entry),
		store:  store,
		waiter: NewWaitRegistry(),
	}
}

// Store exposes the backing store, nil when persistence is disabled
func (s *Service) Store() storage.Store {
	return s.store
}

// GetStorageHealth returns the storage component status
func (s *Service) GetStorageHealth() string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}
	return "degraded"
}

// RegisterWait registers a client to wait for game state changes. A client that is
// already behind, or watching a game that does not exist, is released immediately.
func (s *Service) RegisterWait(ctx context.Context, gameID string, revision int) <-chan struct{} {
	e, err := s.lookup(gameID)
	if err == nil {
		e.mu.Lock()
		current := e.game.Revision()
		// Registering under the game lock keeps a concurrent update from slipping between
		// the check and the registration
		defer e.mu.Unlock()
		if current == revision {
			return s.waiter.RegisterWait(ctx, gameID, revision)
		}
	}
	released := make(chan struct{})
	close(released)
	return released
}

// GenerateGameID creates a new unique game ID
func (s *Service) GenerateGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Ensure UUID uniqueness (handle potential conflicts)
	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

// CreateGame registers and persists a new game
func (s *Service) CreateGame(id string, whitePlayer, blackPlayer *core.Player, initialFEN string) error {
	g, err := game.New(initialFEN, whitePlayer, blackPlayer)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.addGame(id, g); err != nil {
		return err
	}

	// Recorded under the lock so the game row is queued before any of its moves
	if s.store != nil {
		s.store.RecordNewGame(storage.GameRecord{
			GameID:        id,
			InitialFEN:    g.InitialFEN(),
			WhitePlayerID: whitePlayer.ID,
			WhiteName:     whitePlayer.Name,
			BlackPlayerID: blackPlayer.ID,
			BlackName:     blackPlayer.Name,
			State:         g.State().String(),
			Winner:        colorCode(g.Winner()),
			StartTimeUTC:  g.CreatedAt(),
		})
	}
	return nil
}

// AddGame registers an already built game without persisting it, as used by restore
func (s *Service) AddGame(id string, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addGame(id, g)
}

func (s *Service) addGame(id string, g *game.Game) error {
	if _, exists := s.games[id]; exists {
		return fmt.Errorf("%w: %s", ErrGameExists, id)
	}
	if len(s.games) >= MaxGames {
		return ErrTooManyGames
	}
	s.games[id] = &entry{game: g}
	return nil
}

func (s *Service) lookup(gameID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return e, nil
}

// ViewGame runs fn with exclusive access to the game; fn must not retain g
func (s *Service) ViewGame(gameID string, fn func(g *game.Game)) error {
	e, err := s.lookup(gameID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.game)
	return nil
}

// Update runs a mutation under the game's lock, then persists and announces what changed.
// When fn fails nothing is persisted.
func (s *Service) Update(gameID string, fn func(g *game.Game) error) error {
	e, err := s.lookup(gameID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g := e.game
	before := snapshotOf(g)
	if err := fn(g); err != nil {
		return err
	}

	// Store writes are queued in order. Enqueueing under the read lock puts them either
	// ahead of a concurrent delete or not at all.
	s.mu.RLock()
	if s.games[gameID] != e {
		s.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	s.persist(gameID, before, g)
	s.mu.RUnlock()

	// Notify waiting clients about the state change
	s.waiter.NotifyGame(gameID, g.Revision())
	return nil
}

// CheckTurn verifies playerID holds the side to move. An empty playerID skips the check
// so anonymous hot-seat games keep working.
func CheckTurn(g *game.Game, playerID string) error {
	if playerID == "" {
		return nil
	}
	color, ok := g.PlayerColor(playerID)
	if !ok {
		return ErrNotAPlayer
	}
	// Both seats may belong to one player in hot-seat play
	if color != g.NextTurnColor() && g.NextPlayer().ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

// DeleteGame removes a game from memory and storage
func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	// Notify and remove all waiters before deletion
	s.waiter.RemoveGame(gameID)
	delete(s.games, gameID)

	if s.store != nil {
		s.store.DeleteGame(gameID)
	}
	return nil
}

// GameIDs lists live games in sorted order
func (s *Service) GameIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.games))
	for id := range s.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Closing is closed once waiters have been released for shutdown
func (s *Service) Closing() <-chan struct{} {
	return s.waiter.Done()
}

// ReleaseWaiters wakes every parked long-poll and stream so the listener can drain.
// New waits are released immediately afterwards.
func (s *Service) ReleaseWaiters(timeout time.Duration) error {
	return s.waiter.Shutdown(timeout)
}

// Shutdown gracefully shuts down the service
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.games = make(map[string]*entry)

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.store.Flush(ctx); err != nil {
			log.Printf("storage flush on shutdown: %v", err)
		}
		cancel()
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}

// colorCode renders a winner for storage: "w", "b" or empty
func colorCode(c core.Color) string {
	if c == 0 {
		return ""
	}
	return c.String()
}
