package board

import (
	"fmt"
	"strconv"
	"strings"

	"chessarena/internal/server/core"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// CastlingRights tracks which castles remain available per side
type CastlingRights struct {
	WhiteKingside  bool `json:"whiteKingside"`
	WhiteQueenside bool `json:"whiteQueenside"`
	BlackKingside  bool `json:"blackKingside"`
	BlackQueenside bool `json:"blackQueenside"`
}

// Kingside reports the kingside right of color c
func (cr CastlingRights) Kingside(c core.Color) bool {
	if c == core.ColorWhite {
		return cr.WhiteKingside
	}
	return cr.BlackKingside
}

func (cr CastlingRights) Queenside(c core.Color) bool {
	if c == core.ColorWhite {
		return cr.WhiteQueenside
	}
	return cr.BlackQueenside
}

// Revoke clears both rights of color c
func (cr *CastlingRights) Revoke(c core.Color) {
	if c == core.ColorWhite {
		cr.WhiteKingside, cr.WhiteQueenside = false, false
	} else {
		cr.BlackKingside, cr.BlackQueenside = false, false
	}
}

// RevokeRookSquare clears the right tied to a rook's home corner
func (cr *CastlingRights) RevokeRookSquare(sq Square) {
	switch sq {
	case MustSquare("h1"):
		cr.WhiteKingside = false
	case MustSquare("a1"):
		cr.WhiteQueenside = false
	case MustSquare("h8"):
		cr.BlackKingside = false
	case MustSquare("a8"):
		cr.BlackQueenside = false
	}
}

func (cr CastlingRights) String() string {
	var sb strings.Builder
	if cr.WhiteKingside {
		sb.WriteByte('K')
	}
	if cr.WhiteQueenside {
		sb.WriteByte('Q')
	}
	if cr.BlackKingside {
		sb.WriteByte('k')
	}
	if cr.BlackQueenside {
		sb.WriteByte('q')
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// Position is a full board snapshot as described by one FEN string
type Position struct {
	Board     Board
	Turn      core.Color
	Castling  CastlingRights
	EnPassant Square // NoSquare when absent
	Halfmove  int
	Fullmove  int
}

// HomeRank is the back rank of color c
func HomeRank(c core.Color) int {
	if c == core.ColorWhite {
		return 0
	}
	return 7
}

// ParseFEN decodes a six-field FEN string.
// Moved flags are derived: kings and rooks count as unmoved only where a castling right
// still refers to them, pawns only on their starting rank.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return nil, fmt.Errorf("invalid FEN: expected 6 parts, got %d", len(parts))
	}

	pos := &Position{EnPassant: NoSquare}

	// Parse board, rank 8 first
	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("invalid FEN: expected 8 ranks")
	}

	kings := map[core.Color]int{}
	for i := 0; i < 8; i++ {
		rank := 7 - i
		file := 0
		for _, ch := range ranks[i] {
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			if file >= 8 {
				return nil, fmt.Errorf("invalid FEN: too many pieces in rank %d", rank+1)
			}
			pt := PieceTypeFromLetter(byte(ch))
			if pt == NoPieceType || ch > 0x7f {
				return nil, fmt.Errorf("invalid FEN: unknown piece %q", ch)
			}
			color := core.ColorWhite
			if ch >= 'a' {
				color = core.ColorBlack
			}
			if pt == Pawn && (rank == 0 || rank == 7) {
				return nil, fmt.Errorf("invalid FEN: pawn on rank %d", rank+1)
			}
			if pt == King {
				kings[color]++
			}
			pos.Board.Set(NewSquare(file, rank), Piece{Type: pt, Color: color, Moved: true})
			file++
		}
		if file != 8 {
			return nil, fmt.Errorf("invalid FEN: rank %d has %d files", rank+1, file)
		}
	}
	if kings[core.ColorWhite] != 1 || kings[core.ColorBlack] != 1 {
		return nil, fmt.Errorf("invalid FEN: each side needs exactly one king")
	}

	switch parts[1] {
	case "w":
		pos.Turn = core.ColorWhite
	case "b":
		pos.Turn = core.ColorBlack
	default:
		return nil, fmt.Errorf("invalid FEN: turn must be 'w' or 'b'")
	}

	if parts[2] != "-" {
		for _, ch := range parts[2] {
			switch ch {
			case 'K':
				pos.Castling.WhiteKingside = true
			case 'Q':
				pos.Castling.WhiteQueenside = true
			case 'k':
				pos.Castling.BlackKingside = true
			case 'q':
				pos.Castling.BlackQueenside = true
			default:
				return nil, fmt.Errorf("invalid FEN: castling field %q", parts[2])
			}
		}
	}
	pos.normalizeCastling()

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid FEN: en passant: %w", err)
		}
		if err := pos.checkEnPassant(sq); err != nil {
			return nil, err
		}
		pos.EnPassant = sq
	}

	var err error
	if pos.Halfmove, err = strconv.Atoi(parts[4]); err != nil || pos.Halfmove < 0 {
		return nil, fmt.Errorf("invalid FEN: halfmove counter")
	}
	if pos.Fullmove, err = strconv.Atoi(parts[5]); err != nil || pos.Fullmove < 1 {
		return nil, fmt.Errorf("invalid FEN: fullmove counter")
	}

	pos.deriveMovedFlags()
	return pos, nil
}

// MoveNumber returns the fullmove number and the mover of the ply-th ply (from 1) of a
// game that started at fen. An unparsable fen counts from the standard start.
func MoveNumber(fen string, ply int) (int, core.Color) {
	offset := 0
	if pos, err := ParseFEN(fen); err == nil {
		offset = (pos.Fullmove - 1) * 2
		if pos.Turn == core.ColorBlack {
			offset++
		}
	}
	idx := offset + ply - 1
	if idx%2 == 0 {
		return idx/2 + 1, core.ColorWhite
	}
	return idx/2 + 1, core.ColorBlack
}

// checkEnPassant requires sq to be the square just skipped by an enemy double push:
// empty, with the enemy pawn beyond it and its start square vacated.
func (p *Position) checkEnPassant(sq Square) error {
	mover := core.OppositeColor(p.Turn)
	dir := 1
	if mover == core.ColorBlack {
		dir = -1
	}
	if sq.Rank() != HomeRank(mover)+2*dir {
		return fmt.Errorf("invalid FEN: en passant square %s with %s to move", sq, p.Turn.Name())
	}
	pawnSq, _ := sq.Offset(0, dir)
	startSq, _ := sq.Offset(0, -dir)
	if pc, ok := p.Board.Get(pawnSq); !ok || pc.Type != Pawn || pc.Color != mover {
		return fmt.Errorf("invalid FEN: en passant square %s without a pawn on %s", sq, pawnSq)
	}
	if _, ok := p.Board.Get(sq); ok {
		return fmt.Errorf("invalid FEN: en passant square %s is occupied", sq)
	}
	if _, ok := p.Board.Get(startSq); ok {
		return fmt.Errorf("invalid FEN: en passant square %s but %s is occupied", sq, startSq)
	}
	return nil
}

// normalizeCastling drops rights whose king or rook is not on its home square
func (p *Position) normalizeCastling() {
	for _, c := range []core.Color{core.ColorWhite, core.ColorBlack} {
		home := HomeRank(c)
		if k, ok := p.Board.Get(NewSquare(4, home)); !ok || k.Type != King || k.Color != c {
			p.Castling.Revoke(c)
			continue
		}
		if r, ok := p.Board.Get(NewSquare(7, home)); !ok || r.Type != Rook || r.Color != c {
			p.Castling.RevokeRookSquare(NewSquare(7, home))
		}
		if r, ok := p.Board.Get(NewSquare(0, home)); !ok || r.Type != Rook || r.Color != c {
			p.Castling.RevokeRookSquare(NewSquare(0, home))
		}
	}
}

func (p *Position) deriveMovedFlags() {
	unmoved := func(sq Square) {
		pc, _ := p.Board.Get(sq)
		pc.Moved = false
		p.Board.Set(sq, pc)
	}
	for _, c := range []core.Color{core.ColorWhite, core.ColorBlack} {
		home := HomeRank(c)
		ks, qs := p.Castling.Kingside(c), p.Castling.Queenside(c)
		if ks || qs {
			unmoved(NewSquare(4, home))
		}
		if ks {
			unmoved(NewSquare(7, home))
		}
		if qs {
			unmoved(NewSquare(0, home))
		}
		pawnRank := 1
		if c == core.ColorBlack {
			pawnRank = 6
		}
		for f := 0; f < 8; f++ {
			sq := NewSquare(f, pawnRank)
			if pc, ok := p.Board.Get(sq); ok && pc.Type == Pawn && pc.Color == c {
				unmoved(sq)
			}
		}
	}
}

// FEN encodes the position as a six-field FEN string
func (p *Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc, ok := p.Board.Get(NewSquare(file, rank))
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(pc.FENChar())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return fmt.Sprintf("%s %s %s %s %d %d",
		sb.String(), p.Turn, p.Castling, p.EnPassant, p.Halfmove, p.Fullmove)
}

// Clone returns a deep copy; Position holds no references so a value copy suffices
func (p *Position) Clone() *Position {
	c := *p
	return &c
}
