package engine

import (
	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

// target is one geometrically reachable destination, before the self-check filter
type target struct {
	to        board.Square
	capture   bool
	enPassant bool
	castle    CastleSide
}

var (
	knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookDirs      = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// pawnDir is +1 for white (toward rank 8) and -1 for black
func pawnDir(c core.Color) int {
	if c == core.ColorWhite {
		return 1
	}
	return -1
}

func pawnStartRank(c core.Color) int {
	if c == core.ColorWhite {
		return 1
	}
	return 6
}

func promotionRank(c core.Color) int {
	if c == core.ColorWhite {
		return 7
	}
	return 0
}

// candidateTargets lists the destinations the piece on from can reach geometrically.
// Friendly-occupied squares are excluded; check safety is not considered.
func candidateTargets(pos *board.Position, from board.Square) []target {
	p, ok := pos.Board.Get(from)
	if !ok {
		return nil
	}
	switch p.Type {
	case board.Pawn:
		return pawnTargets(pos, from, p)
	case board.Knight:
		return stepTargets(&pos.Board, from, p, knightOffsets[:])
	case board.Bishop:
		return rayTargets(&pos.Board, from, p, bishopDirs[:])
	case board.Rook:
		return rayTargets(&pos.Board, from, p, rookDirs[:])
	case board.Queen:
		return append(rayTargets(&pos.Board, from, p, rookDirs[:]), rayTargets(&pos.Board, from, p, bishopDirs[:])...)
	case board.King:
		return append(stepTargets(&pos.Board, from, p, kingOffsets[:]), castleTargets(pos, from, p)...)
	}
	return nil
}

func stepTargets(b *board.Board, from board.Square, p board.Piece, offsets [][2]int) []target {
	var out []target
	for _, o := range offsets {
		to, ok := from.Offset(o[0], o[1])
		if !ok {
			continue
		}
		occ, occupied := b.Get(to)
		if occupied && occ.Color == p.Color {
			continue
		}
		out = append(out, target{to: to, capture: occupied})
	}
	return out
}

func rayTargets(b *board.Board, from board.Square, p board.Piece, dirs [][2]int) []target {
	var out []target
	for _, d := range dirs {
		for sq, ok := from.Offset(d[0], d[1]); ok; sq, ok = sq.Offset(d[0], d[1]) {
			occ, occupied := b.Get(sq)
			if !occupied {
				out = append(out, target{to: sq})
				continue
			}
			if occ.Color != p.Color {
				out = append(out, target{to: sq, capture: true})
			}
			break
		}
	}
	return out
}

func pawnTargets(pos *board.Position, from board.Square, p board.Piece) []target {
	var out []target
	dir := pawnDir(p.Color)

	if one, ok := from.Offset(0, dir); ok {
		if _, occupied := pos.Board.Get(one); !occupied {
			out = append(out, target{to: one})
			if from.Rank() == pawnStartRank(p.Color) {
				if two, ok := from.Offset(0, 2*dir); ok {
					if _, occupied := pos.Board.Get(two); !occupied {
						out = append(out, target{to: two})
					}
				}
			}
		}
	}

	for _, df := range []int{-1, 1} {
		to, ok := from.Offset(df, dir)
		if !ok {
			continue
		}
		if occ, occupied := pos.Board.Get(to); occupied {
			if occ.Color != p.Color {
				out = append(out, target{to: to, capture: true})
			}
			continue
		}
		if to == pos.EnPassant && p.Color == pos.Turn {
			victim, ok := pos.Board.Get(board.NewSquare(to.File(), from.Rank()))
			if ok && victim.Type == board.Pawn && victim.Color != p.Color {
				out = append(out, target{to: to, capture: true, enPassant: true})
			}
		}
	}
	return out
}

// castleTargets offers castles whose right is held, whose king and rook are unmoved
// and whose intervening squares are empty. Attack conditions are left to the evaluator.
func castleTargets(pos *board.Position, from board.Square, king board.Piece) []target {
	home := board.HomeRank(king.Color)
	if king.Moved || from != board.NewSquare(4, home) {
		return nil
	}
	var out []target
	for _, side := range []CastleSide{Kingside, Queenside} {
		if castleAvailable(pos, king.Color, side) && castlePathClear(&pos.Board, king.Color, side) {
			kingTo, _, _ := castleSquares(king.Color, side)
			out = append(out, target{to: kingTo, castle: side})
		}
	}
	return out
}

func castleAvailable(pos *board.Position, c core.Color, side CastleSide) bool {
	right := pos.Castling.Kingside(c)
	if side == Queenside {
		right = pos.Castling.Queenside(c)
	}
	if !right {
		return false
	}
	_, rookFrom, _ := castleSquares(c, side)
	rook, ok := pos.Board.Get(rookFrom)
	return ok && rook.Type == board.Rook && rook.Color == c && !rook.Moved
}

func castlePathClear(b *board.Board, c core.Color, side CastleSide) bool {
	home := board.HomeRank(c)
	files := []int{5, 6}
	if side == Queenside {
		files = []int{1, 2, 3}
	}
	for _, f := range files {
		if _, occupied := b.Get(board.NewSquare(f, home)); occupied {
			return false
		}
	}
	return true
}

// reachable reports whether the piece could move from -> to on an empty board
func reachable(p board.Piece, from, to board.Square) bool {
	df, dr := to.File()-from.File(), to.Rank()-from.Rank()
	adf, adr := abs(df), abs(dr)
	if adf == 0 && adr == 0 {
		return false
	}
	switch p.Type {
	case board.Pawn:
		dir := pawnDir(p.Color)
		switch {
		case df == 0 && dr == dir:
			return true
		case df == 0 && dr == 2*dir:
			return from.Rank() == pawnStartRank(p.Color)
		default:
			return adf == 1 && dr == dir
		}
	case board.Knight:
		return (adf == 1 && adr == 2) || (adf == 2 && adr == 1)
	case board.Bishop:
		return adf == adr
	case board.Rook:
		return df == 0 || dr == 0
	case board.Queen:
		return adf == adr || df == 0 || dr == 0
	case board.King:
		return adf <= 1 && adr <= 1
	}
	return false
}

// between returns the squares strictly between two aligned squares, or nil
func between(from, to board.Square) []board.Square {
	df, dr := to.File()-from.File(), to.Rank()-from.Rank()
	if from == to || !(df == 0 || dr == 0 || abs(df) == abs(dr)) {
		return nil
	}
	sf, sr := sign(df), sign(dr)
	var out []board.Square
	for sq, ok := from.Offset(sf, sr); ok && sq != to; sq, ok = sq.Offset(sf, sr) {
		out = append(out, sq)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
