package engine

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chessarena/internal/server/board"
)

func TestDecode(t *testing.T) {
	none := board.NoSquare
	tests := []struct {
		in   string
		want Partial
	}{
		{"Nf3", Partial{Piece: board.Knight, From: none, FromFile: -1, FromRank: -1, To: sq("f3")}},
		{"e4", Partial{Piece: board.Pawn, From: none, FromFile: -1, FromRank: -1, To: sq("e4")}},
		{"exd5", Partial{Piece: board.Pawn, From: none, FromFile: 4, FromRank: -1, To: sq("d5"), Capture: true}},
		{"e8=Q+", Partial{Piece: board.Pawn, From: none, FromFile: -1, FromRank: -1, To: sq("e8"), Promotion: board.Queen}},
		{"exd8N#", Partial{Piece: board.Pawn, From: none, FromFile: 4, FromRank: -1, To: sq("d8"), Capture: true, Promotion: board.Knight}},
		{"Nbd2", Partial{Piece: board.Knight, From: none, FromFile: 1, FromRank: -1, To: sq("d2")}},
		{"R1a3", Partial{Piece: board.Rook, From: none, FromFile: -1, FromRank: 0, To: sq("a3")}},
		{"Qa1xb2", Partial{Piece: board.Queen, From: sq("a1"), FromFile: 0, FromRank: 0, To: sq("b2"), Capture: true}},
		{"O-O", Partial{Piece: board.King, From: none, FromFile: -1, FromRank: -1, To: none, Castle: Kingside}},
		{"0-0-0+", Partial{Piece: board.King, From: none, FromFile: -1, FromRank: -1, To: none, Castle: Queenside}},
		{"e2e4", Partial{From: sq("e2"), FromFile: 4, FromRank: 1, To: sq("e4")}},
		{"e7e8q", Partial{From: sq("e7"), FromFile: 4, FromRank: 6, To: sq("e8"), Promotion: board.Queen}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Decode(tt.in)
			if err != nil {
				t.Fatalf("Decode(%q): %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, in := range []string{"", "K", "Z9", "Nf9", "e8=K", "Qe8=Q", "abcde", "Nabc3", "e7e8k"} {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			if !errors.Is(err, ErrMalformedInput) {
				t.Errorf("Decode(%q) err = %v, want ErrMalformedInput", in, err)
			}
		})
	}
}

func TestEncodeDisambiguation(t *testing.T) {
	tests := []struct {
		fen      string
		from, to string
		want     string
	}{
		{"4k3/8/8/8/8/8/8/R4RK1 w - - 0 1", "a1", "c1", "Rac1"},
		{"4k3/8/8/8/8/8/8/R4RK1 w - - 0 1", "f1", "c1", "Rfc1"},
		{"4k3/8/8/R7/8/8/8/R3K3 w - - 0 1", "a1", "a3", "R1a3"},
		{"4k3/8/8/R7/8/8/8/R3K3 w - - 0 1", "a5", "a3", "R5a3"},
		{"4k3/8/8/8/8/Q7/8/Q1Q1K3 w - - 0 1", "a1", "b2", "Qa1b2"},
		{"4k3/8/8/3p4/2P1P3/8/8/4K3 w - - 0 1", "c4", "d5", "cxd5"},
		{"4k3/8/8/8/8/5N2/8/1N2K3 w - - 0 1", "b1", "d2", "Nbd2"},
		{"4k3/8/8/8/8/8/8/1N2K3 w - - 0 1", "b1", "d2", "Nd2"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			gs := mustFEN(t, tt.fen)
			for _, m := range gs.LegalMovesFrom(sq(tt.from)) {
				if m.To == sq(tt.to) {
					if m.Notation != tt.want {
						t.Errorf("notation = %q, want %q", m.Notation, tt.want)
					}
					if got := Encode(m, gs); got != tt.want {
						t.Errorf("Encode = %q, want %q", got, tt.want)
					}
					return
				}
			}
			t.Fatalf("%s%s not legal", tt.from, tt.to)
		})
	}
}

// roundTripPositions covers castles, promotions, en passant and disambiguated moves
var roundTripPositions = []string{
	board.StartingFEN,
	"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/8/PPPP1PPP/RNBQK1NR w KQkq - 2 3",
	"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
	"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1",
	"1n2k3/P1P5/8/8/8/8/8/4K3 w - - 0 1",
	"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	"4k3/8/8/8/8/Q7/8/Q1Q1K3 w - - 0 1",
	"4k3/8/8/R7/8/8/8/R4RK1 w - - 0 1",
}

func TestNotationRoundTrip(t *testing.T) {
	for _, fen := range roundTripPositions {
		t.Run(fen, func(t *testing.T) {
			gs := mustFEN(t, fen)
			moves := gs.LegalMoves(gs.Turn())
			if len(moves) == 0 {
				t.Fatal("no legal moves")
			}
			for _, m := range moves {
				p, err := Decode(m.Notation)
				if err != nil {
					t.Fatalf("Decode(%q): %v", m.Notation, err)
				}
				if p.Piece != m.Piece || p.Promotion != m.Promotion || p.Castle != m.Castle {
					t.Errorf("Decode(%q) = %+v, move %+v", m.Notation, p, m)
				}
				if m.Castle == NoCastle && p.To != m.To {
					t.Errorf("Decode(%q).To = %v, want %v", m.Notation, p.To, m.To)
				}

				resolved, err := gs.Resolve(p)
				if err != nil {
					t.Fatalf("Resolve(%q): %v", m.Notation, err)
				}
				if diff := cmp.Diff(m, resolved); diff != "" {
					t.Errorf("Resolve(%q) mismatch (-want +got):\n%s", m.Notation, diff)
				}
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		text   string
		kind   error
		reason Reason
	}{
		{"ambiguous rook", "4k3/8/8/8/8/8/8/R4RK1 w - - 0 1", "Rc1", ErrMalformedInput, ReasonAmbiguous},
		{"missing promotion", "8/P7/8/8/8/8/8/k6K w - - 0 1", "a8", ErrMalformedInput, ReasonPromotionRequired},
		{"unreachable knight", board.StartingFEN, "Nf4", ErrIllegalMove, ReasonUnreachable},
		{"castle at start", board.StartingFEN, "O-O", ErrIllegalMove, ReasonCastlingRight},
		{"wrong piece letter", board.StartingFEN, "Be4", ErrIllegalMove, ReasonUnreachable},
		{"coordinate self check", "4r1k1/8/8/8/8/8/4R3/4K3 w - - 0 1", "e2d2", ErrIllegalMove, ReasonSelfCheck},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := mustFEN(t, tt.fen)
			_, err := gs.ApplyNotation(tt.text)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %v", err, tt.kind)
			}
			if got := ReasonOf(err); got != tt.reason {
				t.Errorf("reason = %q, want %q", got, tt.reason)
			}
			if gs.Ply() != 0 {
				t.Error("failed notation move was applied")
			}
		})
	}
}

func TestApplyNotation(t *testing.T) {
	gs := NewGame()
	for _, text := range []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6", "Bxc6", "dxc6", "O-O"} {
		if _, err := gs.ApplyNotation(text); err != nil {
			t.Fatalf("ApplyNotation(%q): %v", text, err)
		}
	}
	last, _ := gs.LastMove()
	if last.Castle != Kingside || last.Notation != "O-O" {
		t.Errorf("last = %+v", last)
	}
	if got, want := gs.FEN(), "r1bqkbnr/1pp2ppp/p1p5/4p3/4P3/5N2/PPPP1PPP/RNBQ1RK1 b kq - 1 5"; got != want {
		t.Errorf("FEN = %q, want %q", got, want)
	}
}
