package engine

import (
	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

type CastleSide uint8

const (
	NoCastle CastleSide = iota
	Kingside
	Queenside
)

func (c CastleSide) String() string {
	switch c {
	case Kingside:
		return "kingside"
	case Queenside:
		return "queenside"
	default:
		return "none"
	}
}

// Move is one applied ply. It is created once and never mutated after being logged.
type Move struct {
	From      board.Square    `json:"from"`
	To        board.Square    `json:"to"`
	Piece     board.PieceType `json:"piece"`
	Color     core.Color      `json:"color"`
	Capture   bool            `json:"capture"`
	Castle    CastleSide      `json:"castle"`
	EnPassant bool            `json:"enPassant"`
	Promotion board.PieceType `json:"promotion,omitempty"`
	Check     bool            `json:"check"`
	Checkmate bool            `json:"checkmate"`
	Notation  string          `json:"notation"`
}

// UCI returns coordinate notation, e.g. "e7e8q"
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != board.NoPieceType {
		s += string(m.Promotion.Letter() | 0x20)
	}
	return s
}

// castleSquares returns the king and rook destinations plus rook origin for a castle
func castleSquares(c core.Color, side CastleSide) (kingTo, rookFrom, rookTo board.Square) {
	home := board.HomeRank(c)
	if side == Kingside {
		return board.NewSquare(6, home), board.NewSquare(7, home), board.NewSquare(5, home)
	}
	return board.NewSquare(2, home), board.NewSquare(0, home), board.NewSquare(3, home)
}
