package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"chessarena/internal/server/core"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

var backends = []backend{
	{"sqlite", func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chess.db"), false)
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		if err := s.InitDB(); err != nil {
			t.Fatalf("InitDB: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}},
	{"badger", func(t *testing.T) Store {
		s, err := NewBadgerStore("")
		if err != nil {
			t.Fatalf("NewBadgerStore: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	}},
}

func flush(t *testing.T, s Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func sampleGame(id, white, black string, start time.Time) GameRecord {
	return GameRecord{
		GameID:        id,
		InitialFEN:    "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		WhitePlayerID: white,
		WhiteName:     "alice",
		BlackPlayerID: black,
		BlackName:     "bob",
		State:         "active",
		StartTimeUTC:  start,
	}
}

var openingMoves = []core.MoveInfo{
	{Ply: 1, From: "e2", To: "e4", Piece: "pawn", PlayerColor: "w", Notation: "e4"},
	{Ply: 2, From: "e7", To: "e5", Piece: "pawn", PlayerColor: "b", Notation: "e5"},
	{Ply: 3, From: "g1", To: "f3", Piece: "knight", PlayerColor: "w", Notation: "Nf3"},
}

var ignoreTimes = cmpopts.IgnoreFields(MoveRecord{}, "MoveTimeUTC", "GameID", "FENAfterMove")

func TestStoreMoveLog(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			start := time.Now().UTC().Truncate(time.Second)
			if err := s.RecordNewGame(sampleGame("g1", "p1", "p2", start)); err != nil {
				t.Fatal(err)
			}
			var want []MoveRecord
			for _, info := range openingMoves {
				rec := NewMoveRecord("g1", info, "fen")
				want = append(want, rec)
				if err := s.RecordMove(rec); err != nil {
					t.Fatal(err)
				}
			}
			flush(t, s)

			got, err := s.LoadMoves("g1")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, got, ignoreTimes); diff != "" {
				t.Errorf("moves mismatch (-want +got):\n%s", diff)
			}
			var infos []core.MoveInfo
			for _, m := range got {
				infos = append(infos, m.Info())
			}
			if diff := cmp.Diff(openingMoves, infos); diff != "" {
				t.Errorf("info mismatch (-want +got):\n%s", diff)
			}

			if err := s.DeleteUndoneMoves("g1", 1); err != nil {
				t.Fatal(err)
			}
			flush(t, s)
			got, err = s.LoadMoves("g1")
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].Notation != "e4" {
				t.Errorf("after undo: %+v", got)
			}
		})
	}
}

func TestStoreQueryAndState(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			start := time.Now().UTC().Truncate(time.Second)
			s.RecordNewGame(sampleGame("older", "p1", "p2", start.Add(-time.Hour)))
			s.RecordNewGame(sampleGame("newer", "p3", "p1", start))
			s.RecordNewGame(sampleGame("other", "p4", "p5", start.Add(-2*time.Hour)))
			s.UpdateGameState("older", "resigned", "b")
			flush(t, s)

			all, err := s.QueryGames("*", "")
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, g := range all {
				ids = append(ids, g.GameID)
			}
			if diff := cmp.Diff([]string{"newer", "older", "other"}, ids); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}

			mine, err := s.QueryGames("", "p1")
			if err != nil {
				t.Fatal(err)
			}
			if len(mine) != 2 {
				t.Errorf("player filter returned %d games, want 2", len(mine))
			}

			one, err := s.QueryGames("older", "")
			if err != nil {
				t.Fatal(err)
			}
			if len(one) != 1 || one[0].State != "resigned" || one[0].Winner != "b" {
				t.Errorf("older = %+v", one)
			}
		})
	}
}

func TestStoreDeleteGame(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			s.RecordNewGame(sampleGame("g1", "p1", "p2", time.Now().UTC()))
			s.RecordMove(NewMoveRecord("g1", openingMoves[0], "fen"))
			s.DeleteGame("g1")
			flush(t, s)

			if _, err := s.LoadMoves("g1"); !errors.Is(err, ErrGameNotFound) {
				t.Errorf("LoadMoves after delete: %v", err)
			}
			games, err := s.QueryGames("g1", "")
			if err != nil || len(games) != 0 {
				t.Errorf("QueryGames after delete = %v, %v", games, err)
			}
			if !s.IsHealthy() {
				t.Error("store degraded by delete")
			}
		})
	}
}

func TestStoreDegradesOnFailedWrite(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			s.RecordMove(NewMoveRecord("missing", openingMoves[0], "fen"))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.Flush(ctx)

			if s.IsHealthy() {
				t.Error("store still healthy after orphan move write")
			}
			// Further writes are dropped silently
			if err := s.RecordNewGame(sampleGame("g2", "p1", "p2", time.Now().UTC())); err != nil {
				t.Errorf("write while degraded returned %v", err)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", "x", false); err == nil {
		t.Error("expected error for unknown driver")
	}
}
