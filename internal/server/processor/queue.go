package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chessarena/internal/server/core"
	"chessarena/internal/server/game"
	"chessarena/internal/server/storage"
)

// ReplayTask asks a worker to rebuild one persisted game
type ReplayTask struct {
	Record   storage.GameRecord
	Response chan<- ReplayResult
}

// ReplayResult contains the rebuilt game or the reason it could not be rebuilt
type ReplayResult struct {
	GameID string
	Game   *game.Game
	Moves  int
	Error  error
}

// ReplayQueue rebuilds persisted games on a fixed worker pool
type ReplayQueue struct {
	store   storage.Store
	tasks   chan ReplayTask
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewReplayQueue creates a queue with specified worker count
func NewReplayQueue(store storage.Store, workerCount int) *ReplayQueue {
	if workerCount < 1 {
		workerCount = 2 // Default
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &ReplayQueue{
		store:   store,
		tasks:   make(chan ReplayTask, 100), // Buffered for queueing
		workers: workerCount,
		ctx:     ctx,
		cancel:  cancel,
	}

	q.start()
	return q
}

// start initializes the worker pool
func (q *ReplayQueue) start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

func (q *ReplayQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case task := <-q.tasks:
			result := q.processTask(task)

			// Send result if receiver still listening
			select {
			case task.Response <- result:
			case <-time.After(100 * time.Millisecond):
				log.Printf("Replay worker %d: result for game %s abandoned", id, result.GameID)
			}

		case <-q.ctx.Done():
			return
		}
	}
}

// processTask loads a move log and replays it from the game's initial position
func (q *ReplayQueue) processTask(task ReplayTask) ReplayResult {
	rec := task.Record
	result := ReplayResult{GameID: rec.GameID}

	state, err := core.ParseState(rec.State)
	if err != nil {
		result.Error = err
		return result
	}
	var winner core.Color
	if rec.Winner != "" {
		if winner, err = core.ParseColor(rec.Winner); err != nil {
			result.Error = fmt.Errorf("winner: %w", err)
			return result
		}
	}

	rows, err := q.store.LoadMoves(rec.GameID)
	if err != nil {
		result.Error = err
		return result
	}
	infos := make([]core.MoveInfo, len(rows))
	for i, row := range rows {
		infos[i] = row.Info()
	}
	moves, err := game.FromRecords(infos)
	if err != nil {
		result.Error = err
		return result
	}

	white := &core.Player{ID: rec.WhitePlayerID, Color: core.ColorWhite, Name: rec.WhiteName}
	black := &core.Player{ID: rec.BlackPlayerID, Color: core.ColorBlack, Name: rec.BlackName}

	g, err := game.Restore(rec.InitialFEN, white, black, moves, state, winner)
	if err != nil {
		result.Error = err
		return result
	}

	// A recorded board outcome must be reproduced by the log
	if (state == core.StateCheckmate || state == core.StateStalemate) && g.State() != state {
		result.Error = fmt.Errorf("%w: recorded %s, replayed %s", ErrStateMismatch, state, g.State())
		return result
	}

	result.Game = g
	result.Moves = len(moves)
	return result
}

// ErrStateMismatch marks a log whose replay disagrees with the recorded outcome
var ErrStateMismatch = errors.New("replayed state mismatch")

// Submit adds a task to the queue, waiting while the queue is full
func (q *ReplayQueue) Submit(ctx context.Context, task ReplayTask) error {
	select {
	case q.tasks <- task:
		return nil
	case <-q.ctx.Done():
		return fmt.Errorf("queue is shutting down")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReplayAll rebuilds every record and returns results in completion order.
// Records that could not be submitted are reported with the submit error.
func (q *ReplayQueue) ReplayAll(ctx context.Context, records []storage.GameRecord) []ReplayResult {
	respChan := make(chan ReplayResult, len(records))
	results := make([]ReplayResult, 0, len(records))

	pending := 0
	for _, rec := range records {
		if err := q.Submit(ctx, ReplayTask{Record: rec, Response: respChan}); err != nil {
			results = append(results, ReplayResult{GameID: rec.GameID, Error: err})
			continue
		}
		pending++
	}

	for ; pending > 0; pending-- {
		select {
		case result := <-respChan:
			results = append(results, result)
		case <-ctx.Done():
			return results
		}
	}
	return results
}

// Shutdown gracefully stops the queue
func (q *ReplayQueue) Shutdown(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
