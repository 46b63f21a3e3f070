package board

import (
	"fmt"
	"strings"

	"chessarena/internal/server/core"
)

// Board is a dumb 8x8 container; it performs no legality checks.
// Board is a value type: assignment copies every square.
type Board struct {
	squares [64]Piece
}

// Get returns the piece on sq and whether the square is occupied
func (b *Board) Get(sq Square) (Piece, bool) {
	p := b.squares[sq]
	return p, !p.IsEmpty()
}

// Set places p on sq; an empty Piece clears the square
func (b *Board) Set(sq Square, p Piece) {
	b.squares[sq] = p
}

func (b *Board) Clear(sq Square) {
	b.squares[sq] = Piece{}
}

// Move relocates the piece on from to to, clearing from and marking the piece moved.
// Whatever stood on to is overwritten.
func (b *Board) Move(from, to Square) {
	p := b.squares[from]
	p.Moved = true
	b.squares[from] = Piece{}
	b.squares[to] = p
}

// Clone returns an independent copy for hypothetical evaluation
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// KingSquare finds the king of the given color
func (b *Board) KingSquare(c core.Color) (Square, bool) {
	for sq := Square(0); sq < NoSquare; sq++ {
		p := b.squares[sq]
		if p.Type == King && p.Color == c {
			return sq, true
		}
	}
	return NoSquare, false
}

// Occupied returns the squares holding pieces of color c, in square order
func (b *Board) Occupied(c core.Color) []Square {
	var out []Square
	for sq := Square(0); sq < NoSquare; sq++ {
		if p := b.squares[sq]; !p.IsEmpty() && p.Color == c {
			out = append(out, sq)
		}
	}
	return out
}

// Grid returns the board as [rank][file] optional pieces for presentation
func (b *Board) Grid() [8][8]*Piece {
	var grid [8][8]*Piece
	for sq := Square(0); sq < NoSquare; sq++ {
		if p := b.squares[sq]; !p.IsEmpty() {
			cp := p
			grid[sq.Rank()][sq.File()] = &cp
		}
	}
	return grid
}

// ToASCII creates an ASCII representation of the board, rank 8 on top
func (b *Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 7; r >= 0; r-- {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for f := 0; f < 8; f++ {
			sb.WriteByte(b.squares[NewSquare(f, r)].FENChar())
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
