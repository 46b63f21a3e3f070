package engine

import (
	"fmt"
	"strings"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

// GameState owns one game's position and move log. It is not safe for concurrent use;
// callers serialize access per game.
type GameState struct {
	pos        board.Position
	initialFEN string
	log        []Move
	history    []string // repetition keys, one per position reached including the initial one
	status     core.State
	winner     core.Color
}

// NewGame starts from the standard initial position
func NewGame() *GameState {
	gs, err := NewGameFromFEN(board.StartingFEN)
	if err != nil {
		panic(err)
	}
	return gs
}

// NewGameFromFEN starts from an arbitrary position; the status is classified immediately
func NewGameFromFEN(fen string) (*GameState, error) {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	// The side that just moved cannot have left its king attacked
	if inCheck(&pos.Board, core.OppositeColor(pos.Turn)) {
		return nil, fmt.Errorf("%w: %s king is in check with %s to move",
			ErrMalformedInput, core.OppositeColor(pos.Turn).Name(), pos.Turn.Name())
	}
	gs := &GameState{
		pos:        *pos,
		initialFEN: pos.FEN(),
	}
	gs.history = append(gs.history, repetitionKey(&gs.pos))
	gs.status = classify(&gs.pos)
	if gs.status == core.StateCheckmate {
		gs.winner = core.OppositeColor(gs.pos.Turn)
	}
	return gs, nil
}

func (gs *GameState) Board() board.Board       { return gs.pos.Board }
func (gs *GameState) Position() board.Position { return gs.pos }
func (gs *GameState) Turn() core.Color         { return gs.pos.Turn }
func (gs *GameState) Status() core.State       { return gs.status }
func (gs *GameState) InitialFEN() string       { return gs.initialFEN }
func (gs *GameState) FEN() string              { return gs.pos.FEN() }
func (gs *GameState) Ply() int                 { return len(gs.log) }

// Winner is set after checkmate or resignation, zero otherwise
func (gs *GameState) Winner() core.Color { return gs.winner }

// Log returns a copy of the move log
func (gs *GameState) Log() []Move {
	out := make([]Move, len(gs.log))
	copy(out, gs.log)
	return out
}

// LastMove returns the most recent ply, if any
func (gs *GameState) LastMove() (Move, bool) {
	if len(gs.log) == 0 {
		return Move{}, false
	}
	return gs.log[len(gs.log)-1], true
}

// Clone returns an independent copy
func (gs *GameState) Clone() *GameState {
	c := *gs
	c.log = gs.Log()
	c.history = append([]string(nil), gs.history...)
	return &c
}

// ApplyMove validates and performs one ply. On error the state is unchanged.
func (gs *GameState) ApplyMove(from, to board.Square, promo board.PieceType) (Move, error) {
	if gs.status.IsTerminal() {
		return Move{}, &MoveError{Kind: ErrGameNotActive, Reason: ReasonTerminal, From: from, To: to, Ply: len(gs.log) + 1}
	}

	m, err := validateMove(&gs.pos, from, to, promo)
	if err != nil {
		if me, ok := err.(*MoveError); ok {
			me.Ply = len(gs.log) + 1
		}
		return Move{}, err
	}

	next := gs.pos.Clone()
	applyToPosition(next, m)
	status := classify(next)
	m.Check = status == core.StateCheck || status == core.StateCheckmate
	m.Checkmate = status == core.StateCheckmate
	m.Notation = encodeOn(&gs.pos, m)

	gs.pos = *next
	gs.log = append(gs.log, m)
	gs.history = append(gs.history, repetitionKey(next))
	gs.status = status
	if status == core.StateCheckmate {
		gs.winner = m.Color
	}
	return m, nil
}

// IsLegal reports whether ApplyMove would accept the move
func (gs *GameState) IsLegal(from, to board.Square, promo board.PieceType) bool {
	if gs.status.IsTerminal() {
		return false
	}
	_, err := validateMove(&gs.pos, from, to, promo)
	return err == nil
}

// LegalMoves enumerates every legal move of color c with check flags and notation filled in
func (gs *GameState) LegalMoves(c core.Color) []Move {
	if gs.status.IsTerminal() {
		return nil
	}
	return gs.annotate(legalMovesOn(&gs.pos, c))
}

// LegalMovesFrom lists legal moves of the piece on sq, which must belong to the side to move
func (gs *GameState) LegalMovesFrom(sq board.Square) []Move {
	if gs.status.IsTerminal() || !sq.Valid() {
		return nil
	}
	if p, ok := gs.pos.Board.Get(sq); !ok || p.Color != gs.pos.Turn {
		return nil
	}
	return gs.annotate(legalMovesFromOn(&gs.pos, sq))
}

func (gs *GameState) annotate(moves []Move) []Move {
	for i, m := range moves {
		pos := &gs.pos
		if m.Color != pos.Turn {
			pos = pos.Clone()
			pos.Turn = m.Color
			pos.EnPassant = board.NoSquare
		}
		next := pos.Clone()
		applyToPosition(next, m)
		status := classify(next)
		moves[i].Check = status == core.StateCheck || status == core.StateCheckmate
		moves[i].Checkmate = status == core.StateCheckmate
		moves[i].Notation = encodeOn(pos, moves[i])
	}
	return moves
}

// IsInCheck reports whether c's king is currently attacked
func (gs *GameState) IsInCheck(c core.Color) bool {
	return inCheck(&gs.pos.Board, c)
}

// Resign ends the game in favor of the opponent of c
func (gs *GameState) Resign(c core.Color) error {
	if gs.status.IsTerminal() {
		return &MoveError{Kind: ErrGameNotActive, Reason: ReasonTerminal, From: board.NoSquare, To: board.NoSquare}
	}
	if c != core.ColorWhite && c != core.ColorBlack {
		return &MoveError{Kind: ErrMalformedInput, Reason: ReasonWrongColor, From: board.NoSquare, To: board.NoSquare}
	}
	gs.status = core.StateResigned
	gs.winner = core.OppositeColor(c)
	return nil
}

// AgreeDraw ends the game drawn by mutual agreement
func (gs *GameState) AgreeDraw() error {
	if gs.status.IsTerminal() {
		return &MoveError{Kind: ErrGameNotActive, Reason: ReasonTerminal, From: board.NoSquare, To: board.NoSquare}
	}
	gs.status = core.StateDrawn
	return nil
}

// CanClaimDraw reports a claimable draw: fifty-move rule, threefold repetition
// or insufficient material
func (gs *GameState) CanClaimDraw() bool {
	if gs.status.IsTerminal() {
		return false
	}
	return gs.pos.Halfmove >= 100 || gs.repetitions() >= 3 || insufficientMaterial(&gs.pos.Board)
}

// ClaimDraw ends the game drawn when CanClaimDraw holds
func (gs *GameState) ClaimDraw() error {
	if gs.status.IsTerminal() {
		return &MoveError{Kind: ErrGameNotActive, Reason: ReasonTerminal, From: board.NoSquare, To: board.NoSquare}
	}
	if !gs.CanClaimDraw() {
		return ErrDrawNotClaimable
	}
	gs.status = core.StateDrawn
	return nil
}

func (gs *GameState) repetitions() int {
	current := gs.history[len(gs.history)-1]
	n := 0
	for _, key := range gs.history {
		if key == current {
			n++
		}
	}
	return n
}

// repetitionKey is the FEN without its two clock fields
func repetitionKey(pos *board.Position) string {
	fields := strings.Fields(pos.FEN())
	return strings.Join(fields[:4], " ")
}
