package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
	"chessarena/internal/server/game"
	"chessarena/internal/server/storage"
)

func newService(t *testing.T) (*Service, storage.Store) {
	t.Helper()
	store, err := storage.NewBadgerStore("")
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store), store
}

func players() (*core.Player, *core.Player) {
	return core.NewPlayer(core.PlayerConfig{Name: "white"}, core.ColorWhite),
		core.NewPlayer(core.PlayerConfig{Name: "black"}, core.ColorBlack)
}

func move(from, to string) func(g *game.Game) error {
	return func(g *game.Game) error {
		_, err := g.Move(board.MustSquare(from), board.MustSquare(to), board.NoPieceType)
		return err
	}
}

func storedMoves(t *testing.T, store storage.Store, gameID string) []string {
	t.Helper()
	rows, err := store.LoadMoves(gameID)
	if err != nil {
		t.Fatalf("LoadMoves: %v", err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Notation
	}
	return out
}

func storedState(t *testing.T, store storage.Store, gameID string) (string, string) {
	t.Helper()
	games, err := store.QueryGames(gameID, "")
	if err != nil || len(games) != 1 {
		t.Fatalf("QueryGames(%s) = %v, %v", gameID, games, err)
	}
	return games[0].State, games[0].Winner
}

func TestPersistsMovesUndoAndOutcome(t *testing.T) {
	svc, store := newService(t)
	white, black := players()
	id := svc.GenerateGameID()
	if err := svc.CreateGame(id, white, black, ""); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	for _, m := range [][2]string{{"f2", "f3"}, {"e7", "e5"}, {"g2", "g4"}} {
		if err := svc.Update(id, move(m[0], m[1])); err != nil {
			t.Fatalf("move %v: %v", m, err)
		}
	}
	if diff := cmp.Diff([]string{"f3", "e5", "g4"}, storedMoves(t, store, id)); diff != "" {
		t.Errorf("stored moves mismatch (-want +got):\n%s", diff)
	}

	if err := svc.Update(id, func(g *game.Game) error { return g.UndoMoves(2) }); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if diff := cmp.Diff([]string{"f3"}, storedMoves(t, store, id)); diff != "" {
		t.Errorf("stored moves after undo mismatch (-want +got):\n%s", diff)
	}

	for _, m := range [][2]string{{"e7", "e5"}, {"g2", "g4"}, {"d8", "h4"}} {
		if err := svc.Update(id, move(m[0], m[1])); err != nil {
			t.Fatalf("move %v: %v", m, err)
		}
	}
	if diff := cmp.Diff([]string{"f3", "e5", "g4", "Qh4#"}, storedMoves(t, store, id)); diff != "" {
		t.Errorf("stored moves mismatch (-want +got):\n%s", diff)
	}
	state, winner := storedState(t, store, id)
	if state != "checkmate" || winner != "b" {
		t.Errorf("stored outcome = %s/%s, want checkmate/b", state, winner)
	}

	rows, _ := store.LoadMoves(id)
	if last := rows[len(rows)-1]; last.FENAfterMove == "" {
		t.Errorf("last move has no FEN")
	}
}

func TestFailedUpdatePersistsNothing(t *testing.T) {
	svc, store := newService(t)
	white, black := players()
	id := svc.GenerateGameID()
	if err := svc.CreateGame(id, white, black, ""); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	if err := svc.Update(id, move("e2", "e5")); err == nil {
		t.Fatal("illegal move accepted")
	}
	if got := storedMoves(t, store, id); len(got) != 0 {
		t.Errorf("stored moves = %v, want none", got)
	}
	var rev int
	svc.ViewGame(id, func(g *game.Game) { rev = g.Revision() })
	if rev != 0 {
		t.Errorf("revision = %d after rejected move, want 0", rev)
	}
}

func TestCheckTurn(t *testing.T) {
	white, black := players()
	g, err := game.New("", white, black)
	if err != nil {
		t.Fatal(err)
	}
	same := core.NewPlayer(core.PlayerConfig{}, core.ColorWhite)
	hotSeat, err := game.New("", same, &core.Player{ID: same.ID, Color: core.ColorBlack})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := hotSeat.Move(board.MustSquare("e2"), board.MustSquare("e4"), board.NoPieceType); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		g        *game.Game
		playerID string
		want     error
	}{
		{"anonymous", g, "", nil},
		{"white to move", g, white.ID, nil},
		{"black waits", g, black.ID, ErrNotYourTurn},
		{"stranger", g, "00000000-0000-0000-0000-000000000000", ErrNotAPlayer},
		{"hot seat", hotSeat, same.ID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CheckTurn(tt.g, tt.playerID); !errors.Is(err, tt.want) {
				t.Errorf("CheckTurn = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnknownGame(t *testing.T) {
	svc := New(nil)
	if err := svc.Update("missing", move("e2", "e4")); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Update = %v, want ErrGameNotFound", err)
	}
	if err := svc.DeleteGame("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("DeleteGame = %v, want ErrGameNotFound", err)
	}
	if got := svc.GetStorageHealth(); got != "disabled" {
		t.Errorf("storage health = %q, want disabled", got)
	}
}

func TestDuplicateGameRejected(t *testing.T) {
	svc := New(nil)
	white, black := players()
	if err := svc.CreateGame("g1", white, black, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateGame("g1", white, black, ""); !errors.Is(err, ErrGameExists) {
		t.Errorf("second CreateGame = %v, want ErrGameExists", err)
	}
}

func TestWaitersReleasedOnMoveAndDelete(t *testing.T) {
	svc, store := newService(t)
	white, black := players()
	id := svc.GenerateGameID()
	if err := svc.CreateGame(id, white, black, ""); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	moved := svc.RegisterWait(ctx, id, 0)
	stale := svc.RegisterWait(ctx, id, 1)

	if err := svc.Update(id, move("e2", "e4")); err != nil {
		t.Fatal(err)
	}
	select {
	case <-moved:
	case <-time.After(time.Second):
		t.Fatal("waiter at revision 0 not released by move")
	}
	select {
	case <-stale:
		t.Fatal("waiter already at revision 1 released early")
	default:
	}

	if err := svc.DeleteGame(id); err != nil {
		t.Fatal(err)
	}
	select {
	case <-stale:
	case <-time.After(time.Second):
		t.Fatal("waiter not released by delete")
	}

	if games, _ := store.QueryGames(id, ""); len(games) != 0 {
		t.Errorf("deleted game still stored: %v", games)
	}
}

func TestDeleteDuringUpdateKeepsStoreHealthy(t *testing.T) {
	for _, driver := range []string{"sqlite", "badger"} {
		t.Run(driver, func(t *testing.T) {
			store, err := storage.Open(driver, filepath.Join(t.TempDir(), "chess.db"), false)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if err := store.InitDB(); err != nil {
				t.Fatalf("InitDB: %v", err)
			}
			t.Cleanup(func() { store.Close() })
			deleteDuringUpdate(t, New(store), store)
		})
	}
}

func deleteDuringUpdate(t *testing.T, svc *Service, store storage.Store) {
	t.Helper()
	white, black := players()
	id := svc.GenerateGameID()
	if err := svc.CreateGame(id, white, black, ""); err != nil {
		t.Fatal(err)
	}

	err := svc.Update(id, func(g *game.Game) error {
		if err := svc.DeleteGame(id); err != nil {
			t.Errorf("DeleteGame: %v", err)
		}
		_, err := g.Move(board.MustSquare("e2"), board.MustSquare("e4"), board.NoPieceType)
		return err
	})
	if !errors.Is(err, ErrGameNotFound) {
		t.Errorf("Update on a deleted game = %v, want ErrGameNotFound", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := svc.GetStorageHealth(); got != "ok" {
		t.Fatalf("storage health = %s, want ok", got)
	}

	// Later games still persist
	other := svc.GenerateGameID()
	if err := svc.CreateGame(other, white, black, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Update(other, move("d2", "d4")); err != nil {
		t.Fatal(err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if diff := cmp.Diff([]string{"d4"}, storedMoves(t, store, other)); diff != "" {
		t.Errorf("stored moves mismatch (-want +got):\n%s", diff)
	}
}

func TestShutdownClosesStore(t *testing.T) {
	svc, store := newService(t)
	if err := svc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if ids := svc.GameIDs(); len(ids) != 0 {
		t.Errorf("games after shutdown = %v", ids)
	}
	if err := store.RecordNewGame(storage.GameRecord{GameID: "late"}); err == nil {
		t.Error("store accepted write after shutdown")
	}
}

func TestStaleWaiterReleasedImmediately(t *testing.T) {
	svc := New(nil)
	white, black := players()
	if err := svc.CreateGame("g1", white, black, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Update("g1", move("e2", "e4")); err != nil {
		t.Fatal(err)
	}

	for name, ch := range map[string]<-chan struct{}{
		"behind":  svc.RegisterWait(context.Background(), "g1", 0),
		"missing": svc.RegisterWait(context.Background(), "nope", 0),
	} {
		select {
		case <-ch:
		default:
			t.Errorf("%s waiter not released", name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	current := svc.RegisterWait(ctx, "g1", 1)
	cancel()
	select {
	case <-current:
	case <-time.After(time.Second):
		t.Fatal("waiter not released by context cancellation")
	}
}
