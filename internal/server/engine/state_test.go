package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

var sq = board.MustSquare

type ply struct {
	from, to string
	promo    board.PieceType
}

func play(t *testing.T, gs *GameState, moves ...ply) {
	t.Helper()
	for _, p := range moves {
		if _, err := gs.ApplyMove(sq(p.from), sq(p.to), p.promo); err != nil {
			t.Fatalf("ApplyMove(%s%s): %v", p.from, p.to, err)
		}
	}
}

func mustFEN(t *testing.T, fen string) *GameState {
	t.Helper()
	gs, err := NewGameFromFEN(fen)
	if err != nil {
		t.Fatalf("NewGameFromFEN(%q): %v", fen, err)
	}
	return gs
}

func TestStartingPositionHasTwentyMoves(t *testing.T) {
	gs := NewGame()
	if got := len(gs.LegalMoves(core.ColorWhite)); got != 20 {
		t.Errorf("white legal moves = %d, want 20", got)
	}
	if got := len(gs.LegalMoves(core.ColorBlack)); got != 20 {
		t.Errorf("black legal moves = %d, want 20", got)
	}
	if gs.Status() != core.StateActive {
		t.Errorf("status = %v, want active", gs.Status())
	}
}

func TestFourMoveSequence(t *testing.T) {
	gs := NewGame()
	play(t, gs, ply{"e2", "e4", 0}, ply{"e7", "e5", 0}, ply{"f1", "c4", 0}, ply{"b8", "c6", 0})

	if gs.Status() != core.StateActive {
		t.Errorf("status = %v, want active", gs.Status())
	}
	if gs.Turn() != core.ColorWhite {
		t.Errorf("turn = %v, want white", gs.Turn())
	}
	if gs.Ply() != 4 {
		t.Errorf("log length = %d, want 4", gs.Ply())
	}

	b := gs.Board()
	if p, ok := b.Get(sq("e4")); !ok || p.Type != board.Pawn || p.Color != core.ColorWhite {
		t.Errorf("e4 = %+v, want white pawn", p)
	}
	if p, ok := b.Get(sq("c4")); !ok || p.Type != board.Bishop || p.Color != core.ColorWhite {
		t.Errorf("c4 = %+v, want white bishop", p)
	}

	var notation []string
	for _, m := range gs.Log() {
		notation = append(notation, m.Notation)
	}
	if diff := cmp.Diff([]string{"e4", "e5", "Bc4", "Nc6"}, notation); diff != "" {
		t.Errorf("notation mismatch (-want +got):\n%s", diff)
	}
	if got, want := gs.FEN(), "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/8/PPPP1PPP/RNBQK1NR w KQkq - 2 3"; got != want {
		t.Errorf("FEN = %q, want %q", got, want)
	}
}

func TestFoolsMate(t *testing.T) {
	gs := NewGame()
	play(t, gs, ply{"f2", "f3", 0}, ply{"e7", "e5", 0}, ply{"g2", "g4", 0}, ply{"d8", "h4", 0})

	if gs.Status() != core.StateCheckmate {
		t.Fatalf("status = %v, want checkmate", gs.Status())
	}
	if gs.Turn() != core.ColorWhite {
		t.Errorf("turn = %v, want white", gs.Turn())
	}
	if !gs.IsInCheck(core.ColorWhite) {
		t.Error("white should be in check")
	}
	if n := len(legalMovesOn(&gs.pos, core.ColorWhite)); n != 0 {
		t.Errorf("white has %d legal moves, want 0", n)
	}
	if gs.Winner() != core.ColorBlack {
		t.Errorf("winner = %v, want black", gs.Winner())
	}
	last, _ := gs.LastMove()
	if last.Notation != "Qh4#" || !last.Checkmate || !last.Check {
		t.Errorf("last move = %+v", last)
	}

	_, err := gs.ApplyMove(sq("a2"), sq("a3"), 0)
	if !errors.Is(err, ErrGameNotActive) {
		t.Errorf("move after mate: err = %v, want ErrGameNotActive", err)
	}
}

func TestStalemate(t *testing.T) {
	gs := mustFEN(t, "7k/8/6K1/8/8/8/8/5Q2 w - - 0 1")
	play(t, gs, ply{"f1", "f7", 0})

	if gs.Status() != core.StateStalemate {
		t.Fatalf("status = %v, want stalemate", gs.Status())
	}
	if gs.Winner() != 0 {
		t.Errorf("winner = %v, want none", gs.Winner())
	}
	if _, err := gs.ApplyMove(sq("h8"), sq("h7"), 0); !errors.Is(err, ErrGameNotActive) {
		t.Errorf("err = %v, want ErrGameNotActive", err)
	}
}

func TestRejectedMoves(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		from   board.Square
		to     board.Square
		promo  board.PieceType
		kind   error
		reason Reason
	}{
		{"out of range", board.StartingFEN, board.Square(70), sq("e4"), 0, ErrMalformedInput, ReasonOutOfRange},
		{"empty origin", board.StartingFEN, sq("e3"), sq("e4"), 0, ErrIllegalMove, ReasonNoPiece},
		{"opponent piece", board.StartingFEN, sq("e7"), sq("e5"), 0, ErrNotPlayersTurn, ReasonWrongColor},
		{"pawn triple step", board.StartingFEN, sq("e2"), sq("e5"), 0, ErrIllegalMove, ReasonUnreachable},
		{"knight straight", board.StartingFEN, sq("g1"), sq("g3"), 0, ErrIllegalMove, ReasonUnreachable},
		{"rook blocked", board.StartingFEN, sq("a1"), sq("a3"), 0, ErrIllegalMove, ReasonPathBlocked},
		{"bishop blocked", board.StartingFEN, sq("c1"), sq("e3"), 0, ErrIllegalMove, ReasonPathBlocked},
		{"friendly capture", board.StartingFEN, sq("a1"), sq("a2"), 0, ErrIllegalMove, ReasonFriendlyTarget},
		{"castle blocked", board.StartingFEN, sq("e1"), sq("g1"), 0, ErrIllegalMove, ReasonPathBlocked},
		{"pawn into piece", "4k3/8/8/8/4p3/4P3/8/4K3 w - - 0 1", sq("e3"), sq("e4"), 0, ErrIllegalMove, ReasonPathBlocked},
		{"pawn diagonal to empty", board.StartingFEN, sq("e2"), sq("d3"), 0, ErrIllegalMove, ReasonUnreachable},
		{"castle without right", "r3k2r/8/8/8/8/8/8/R3K2R w Qkq - 0 1", sq("e1"), sq("g1"), 0, ErrIllegalMove, ReasonCastlingRight},
		{"castle out of check", "r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1", sq("e1"), sq("g1"), 0, ErrIllegalMove, ReasonCastleOutOfCheck},
		{"castle through check", "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1", sq("e1"), sq("g1"), 0, ErrIllegalMove, ReasonCastleThroughCheck},
		{"castle into check", "r3k2r/8/8/8/8/8/6r1/R3K2R w KQkq - 0 1", sq("e1"), sq("g1"), 0, ErrIllegalMove, ReasonCastleThroughCheck},
		{"pinned rook", "4r1k1/8/8/8/8/8/4R3/4K3 w - - 0 1", sq("e2"), sq("d2"), 0, ErrIllegalMove, ReasonSelfCheck},
		{"king into attack", "4r1k1/8/8/8/8/8/8/3K4 w - - 0 1", sq("d1"), sq("e1"), 0, ErrIllegalMove, ReasonSelfCheck},
		{"missing promotion", "8/P7/8/8/8/8/8/k6K w - - 0 1", sq("a7"), sq("a8"), 0, ErrMalformedInput, ReasonPromotionRequired},
		{"king promotion", "8/P7/8/8/8/8/8/k6K w - - 0 1", sq("a7"), sq("a8"), board.King, ErrMalformedInput, ReasonInvalidPromotion},
		{"promotion off last rank", board.StartingFEN, sq("e2"), sq("e4"), board.Queen, ErrMalformedInput, ReasonInvalidPromotion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := mustFEN(t, tt.fen)
			before := gs.Clone()

			_, err := gs.ApplyMove(tt.from, tt.to, tt.promo)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want kind %v", err, tt.kind)
			}
			if got := ReasonOf(err); got != tt.reason {
				t.Errorf("reason = %q, want %q", got, tt.reason)
			}
			var me *MoveError
			if errors.As(err, &me) && me.Ply != 1 {
				t.Errorf("ply = %d, want 1", me.Ply)
			}
			if diff := cmp.Diff(before, gs, cmp.AllowUnexported(GameState{}, board.Board{})); diff != "" {
				t.Errorf("rejected move mutated state (-before +after):\n%s", diff)
			}
		})
	}
}

func TestCastling(t *testing.T) {
	const fen = "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"

	t.Run("kingside", func(t *testing.T) {
		gs := mustFEN(t, fen)
		m, err := gs.ApplyMove(sq("e1"), sq("g1"), 0)
		if err != nil {
			t.Fatal(err)
		}
		if m.Castle != Kingside || m.Notation != "O-O" {
			t.Errorf("move = %+v", m)
		}
		b := gs.Board()
		if r, _ := b.Get(sq("f1")); r.Type != board.Rook {
			t.Errorf("f1 = %+v, want rook", r)
		}
		if _, ok := b.Get(sq("h1")); ok {
			t.Error("h1 should be empty")
		}
		if got := gs.Position().Castling.String(); got != "kq" {
			t.Errorf("castling = %q, want kq", got)
		}
	})

	t.Run("queenside", func(t *testing.T) {
		gs := mustFEN(t, fen)
		play(t, gs, ply{"a1", "b1", 0})
		m, err := gs.ApplyMove(sq("e8"), sq("c8"), 0)
		if err != nil {
			t.Fatal(err)
		}
		if m.Castle != Queenside || m.Notation != "O-O-O" {
			t.Errorf("move = %+v", m)
		}
		if r, _ := gs.pos.Board.Get(sq("d8")); r.Type != board.Rook || r.Color != core.ColorBlack {
			t.Errorf("d8 = %+v, want black rook", r)
		}
	})

	t.Run("king moved and returned", func(t *testing.T) {
		gs := mustFEN(t, fen)
		play(t, gs, ply{"e1", "f1", 0}, ply{"e8", "f8", 0}, ply{"f1", "e1", 0}, ply{"f8", "e8", 0})

		king, _ := gs.pos.Board.Get(sq("e1"))
		if !king.Moved {
			t.Error("king moved flag was reset")
		}
		_, err := gs.ApplyMove(sq("e1"), sq("g1"), 0)
		if ReasonOf(err) != ReasonCastlingRight {
			t.Errorf("err = %v, want castling-right rejection", err)
		}
		for _, m := range gs.LegalMoves(core.ColorWhite) {
			if m.Castle != NoCastle {
				t.Errorf("castle offered after king moved: %+v", m)
			}
		}
	})

	t.Run("rook moved and returned", func(t *testing.T) {
		gs := mustFEN(t, fen)
		play(t, gs, ply{"h1", "h2", 0}, ply{"a8", "a7", 0}, ply{"h2", "h1", 0}, ply{"a7", "a8", 0})
		if gs.IsLegal(sq("e1"), sq("g1"), 0) {
			t.Error("kingside castle allowed after rook moved")
		}
		if !gs.IsLegal(sq("e1"), sq("c1"), 0) {
			t.Error("queenside castle should still be legal")
		}
	})
}

func TestEnPassant(t *testing.T) {
	gs := NewGame()
	play(t, gs, ply{"e2", "e4", 0}, ply{"a7", "a6", 0}, ply{"e4", "e5", 0}, ply{"d7", "d5", 0})

	if got := gs.Position().EnPassant; got != sq("d6") {
		t.Fatalf("en passant target = %v, want d6", got)
	}
	m, err := gs.ApplyMove(sq("e5"), sq("d6"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !m.EnPassant || !m.Capture || m.Notation != "exd6" {
		t.Errorf("move = %+v", m)
	}
	if _, ok := gs.pos.Board.Get(sq("d5")); ok {
		t.Error("captured pawn still on d5")
	}
}

func TestEnPassantExpires(t *testing.T) {
	gs := NewGame()
	play(t, gs,
		ply{"e2", "e4", 0}, ply{"a7", "a6", 0}, ply{"e4", "e5", 0}, ply{"d7", "d5", 0},
		ply{"h2", "h3", 0}, ply{"h7", "h6", 0})

	_, err := gs.ApplyMove(sq("e5"), sq("d6"), 0)
	if ReasonOf(err) != ReasonUnreachable {
		t.Errorf("late en passant: err = %v, want unreachable", err)
	}
}

func TestPromotion(t *testing.T) {
	const fen = "8/P7/8/8/8/8/8/k6K w - - 0 1"

	gs := mustFEN(t, fen)
	if got := len(gs.LegalMovesFrom(sq("a7"))); got != 4 {
		t.Errorf("a7 legal moves = %d, want 4 promotion choices", got)
	}

	m, err := gs.ApplyMove(sq("a7"), sq("a8"), board.Queen)
	if err != nil {
		t.Fatal(err)
	}
	if m.Notation != "a8=Q+" || gs.Status() != core.StateCheck {
		t.Errorf("notation = %q status = %v", m.Notation, gs.Status())
	}
	if p, _ := gs.pos.Board.Get(sq("a8")); p.Type != board.Queen || p.Color != core.ColorWhite {
		t.Errorf("a8 = %+v, want white queen", p)
	}

	gs = mustFEN(t, fen)
	m, err = gs.ApplyMove(sq("a7"), sq("a8"), board.Knight)
	if err != nil {
		t.Fatal(err)
	}
	if m.Notation != "a8=N" {
		t.Errorf("notation = %q, want a8=N", m.Notation)
	}
}

func TestPinnedPieceExcluded(t *testing.T) {
	gs := mustFEN(t, "4r1k1/8/8/8/8/8/4R3/4K3 w - - 0 1")

	moves := gs.LegalMovesFrom(sq("e2"))
	if len(moves) != 6 {
		t.Errorf("pinned rook has %d moves, want 6 along the e-file", len(moves))
	}
	for _, m := range moves {
		if m.To.File() != 4 {
			t.Errorf("pinned rook offered %s", m.To)
		}
	}
	for _, c := range candidateTargets(&gs.pos, sq("e2")) {
		if c.to == sq("d2") {
			return
		}
	}
	t.Error("d2 should still be a geometric candidate")
}

func TestResignAndDraw(t *testing.T) {
	gs := NewGame()
	if err := gs.Resign(core.ColorWhite); err != nil {
		t.Fatal(err)
	}
	if gs.Status() != core.StateResigned || gs.Winner() != core.ColorBlack {
		t.Errorf("status = %v winner = %v", gs.Status(), gs.Winner())
	}
	if err := gs.Resign(core.ColorBlack); !errors.Is(err, ErrGameNotActive) {
		t.Errorf("second resign err = %v", err)
	}
	if err := gs.AgreeDraw(); !errors.Is(err, ErrGameNotActive) {
		t.Errorf("draw after resign err = %v", err)
	}

	gs = NewGame()
	if err := gs.AgreeDraw(); err != nil {
		t.Fatal(err)
	}
	if gs.Status() != core.StateDrawn {
		t.Errorf("status = %v, want drawn", gs.Status())
	}
	if _, err := gs.ApplyMove(sq("e2"), sq("e4"), 0); !errors.Is(err, ErrGameNotActive) {
		t.Errorf("move after draw err = %v", err)
	}
}

func TestDrawClaims(t *testing.T) {
	t.Run("not claimable at start", func(t *testing.T) {
		gs := NewGame()
		if gs.CanClaimDraw() {
			t.Error("CanClaimDraw at start")
		}
		if err := gs.ClaimDraw(); !errors.Is(err, ErrDrawNotClaimable) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("insufficient material", func(t *testing.T) {
		for _, fen := range []string{
			"8/8/8/8/8/8/8/K6k w - - 0 1",
			"8/8/8/8/8/8/8/KN5k w - - 0 1",
			"8/8/8/8/8/8/8/KB1b3k w - - 0 1",
		} {
			gs := mustFEN(t, fen)
			if !gs.CanClaimDraw() {
				t.Errorf("%s: expected claimable draw", fen)
			}
		}
		if gs := mustFEN(t, "8/8/8/8/8/8/8/KB2b2k w - - 0 1"); gs.CanClaimDraw() {
			t.Error("opposite-colored bishops are not a dead position")
		}
	})

	t.Run("fifty moves", func(t *testing.T) {
		gs := mustFEN(t, "8/8/8/8/8/8/R7/K6k w - - 99 80")
		if gs.CanClaimDraw() {
			t.Fatal("claimable before the hundredth halfmove")
		}
		play(t, gs, ply{"a2", "b2", 0})
		if !gs.CanClaimDraw() {
			t.Fatal("expected fifty-move claim")
		}
		if err := gs.ClaimDraw(); err != nil || gs.Status() != core.StateDrawn {
			t.Errorf("ClaimDraw err = %v status = %v", err, gs.Status())
		}
	})

	t.Run("threefold repetition", func(t *testing.T) {
		gs := NewGame()
		shuffle := []ply{{"g1", "f3", 0}, {"g8", "f6", 0}, {"f3", "g1", 0}, {"f6", "g8", 0}}
		play(t, gs, shuffle...)
		if gs.CanClaimDraw() {
			t.Fatal("claimable after second occurrence")
		}
		play(t, gs, shuffle...)
		if !gs.CanClaimDraw() {
			t.Error("expected repetition claim")
		}
	})
}

func TestCustomStartInCheckmate(t *testing.T) {
	gs := mustFEN(t, "k7/1Q6/1K6/8/8/8/8/8 b - - 0 1")
	if gs.Status() != core.StateCheckmate || gs.Winner() != core.ColorWhite {
		t.Errorf("status = %v winner = %v", gs.Status(), gs.Winner())
	}
}

func TestNewGameFromFENInvalid(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"garbage", "not a fen"},
		{"black king capturable", "4k3/8/8/8/8/8/8/4R1K1 w - - 0 1"},
		{"white king capturable", "4k3/8/8/8/8/8/3q4/4K3 b - - 0 1"},
		{"en passant without a double push", "4k3/8/8/8/8/8/3Pp3/4K3 w - e3 0 1"},
		{"en passant for the wrong side", "4k3/8/8/3pP3/8/8/8/4K3 w - e3 0 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, err := NewGameFromFEN(tt.fen)
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("NewGameFromFEN(%q) = %v, %v; want ErrMalformedInput", tt.fen, gs, err)
			}
		})
	}
}

func TestNewGameFromFENEnPassant(t *testing.T) {
	gs := mustFEN(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")
	m, err := gs.ApplyMove(board.MustSquare("e5"), board.MustSquare("d6"), board.NoPieceType)
	if err != nil {
		t.Fatalf("exd6 e.p.: %v", err)
	}
	if !m.EnPassant {
		t.Errorf("move = %+v, want en passant", m)
	}
	if got, want := gs.FEN(), "4k3/8/3P4/8/8/8/8/4K3 b - - 0 1"; got != want {
		t.Errorf("FEN = %q, want %q", got, want)
	}
}
