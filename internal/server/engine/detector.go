package engine

import (
	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

// IsAttacked reports whether any piece of color by attacks sq.
// Pawns attack their two forward diagonals whether or not those squares are occupied;
// castling never attacks. Legality is not consulted.
func IsAttacked(b *board.Board, sq board.Square, by core.Color) bool {
	for _, from := range b.Occupied(by) {
		p, _ := b.Get(from)
		if attacks(b, p, from, sq) {
			return true
		}
	}
	return false
}

func attacks(b *board.Board, p board.Piece, from, sq board.Square) bool {
	df, dr := sq.File()-from.File(), sq.Rank()-from.Rank()
	switch p.Type {
	case board.Pawn:
		return abs(df) == 1 && dr == pawnDir(p.Color)
	case board.Knight, board.King:
		return reachable(p, from, sq)
	case board.Bishop, board.Rook, board.Queen:
		if !reachable(p, from, sq) {
			return false
		}
		for _, mid := range between(from, sq) {
			if _, occupied := b.Get(mid); occupied {
				return false
			}
		}
		return true
	}
	return false
}

// inCheck reports whether c's king is attacked. A position without that king is never in check.
func inCheck(b *board.Board, c core.Color) bool {
	king, ok := b.KingSquare(c)
	if !ok {
		return false
	}
	return IsAttacked(b, king, core.OppositeColor(c))
}

// hasLegalMove stops at the first legal move found for the side to move
func hasLegalMove(pos *board.Position) bool {
	for _, from := range pos.Board.Occupied(pos.Turn) {
		for _, t := range candidateTargets(pos, from) {
			if _, err := validateMove(pos, from, t.to, anyPromotion(pos, from, t.to)); err == nil {
				return true
			}
		}
	}
	return false
}

// classify derives the board-determined status for the side to move
func classify(pos *board.Position) core.State {
	check := inCheck(&pos.Board, pos.Turn)
	canMove := hasLegalMove(pos)
	switch {
	case check && canMove:
		return core.StateCheck
	case check:
		return core.StateCheckmate
	case !canMove:
		return core.StateStalemate
	}
	return core.StateActive
}

// insufficientMaterial covers K v K, K+minor v K, and K+B v K+B with same-colored bishops
func insufficientMaterial(b *board.Board) bool {
	var minors []board.Square
	var bishops []board.Square
	for _, c := range []core.Color{core.ColorWhite, core.ColorBlack} {
		for _, sq := range b.Occupied(c) {
			p, _ := b.Get(sq)
			switch p.Type {
			case board.King:
			case board.Knight:
				minors = append(minors, sq)
			case board.Bishop:
				minors = append(minors, sq)
				bishops = append(bishops, sq)
			default:
				return false
			}
		}
	}
	switch {
	case len(minors) <= 1:
		return true
	case len(minors) == 2 && len(bishops) == 2:
		a, _ := b.Get(bishops[0])
		c, _ := b.Get(bishops[1])
		return a.Color != c.Color && squareShade(bishops[0]) == squareShade(bishops[1])
	}
	return false
}

func squareShade(sq board.Square) int {
	return (sq.File() + sq.Rank()) % 2
}
