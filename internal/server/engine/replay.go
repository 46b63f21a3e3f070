package engine

import (
	"chessarena/internal/server/board"
)

// Reconstruct replays log from the standard initial position
func Reconstruct(log []Move) (*GameState, error) {
	return ReconstructFrom(board.StartingFEN, log)
}

// ReconstructFrom replays log from fen, applying each move exactly as live play would.
// The first move that fails fails the whole replay; no partial state is returned.
// A logged piece type that disagrees with the board is treated as corruption too.
func ReconstructFrom(fen string, log []Move) (*GameState, error) {
	gs, err := NewGameFromFEN(fen)
	if err != nil {
		return nil, &ReplayError{Ply: 0, Err: err}
	}
	for i, logged := range log {
		if logged.Piece != board.NoPieceType {
			if p, ok := gs.pos.Board.Get(logged.From); logged.From.Valid() && ok && p.Type != logged.Piece {
				return nil, &ReplayError{Ply: i + 1, Err: &MoveError{
					Kind: ErrIllegalMove, Reason: ReasonPieceMismatch, From: logged.From, To: logged.To, Ply: i + 1,
				}}
			}
		}
		if _, err := gs.ApplyMove(logged.From, logged.To, logged.Promotion); err != nil {
			return nil, &ReplayError{Ply: i + 1, Err: err}
		}
	}
	return gs, nil
}

// ReconstructNotation replays a log stored as notation text
func ReconstructNotation(fen string, log []string) (*GameState, error) {
	gs, err := NewGameFromFEN(fen)
	if err != nil {
		return nil, &ReplayError{Ply: 0, Err: err}
	}
	for i, text := range log {
		if _, err := gs.ApplyNotation(text); err != nil {
			return nil, &ReplayError{Ply: i + 1, Err: err}
		}
	}
	return gs, nil
}

// Truncate rebuilds the game with only its first n plies, which is how undo works
func (gs *GameState) Truncate(n int) (*GameState, error) {
	if n < 0 {
		n = 0
	}
	if n > len(gs.log) {
		n = len(gs.log)
	}
	return ReconstructFrom(gs.initialFEN, gs.log[:n])
}
