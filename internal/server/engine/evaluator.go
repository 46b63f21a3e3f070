package engine

import (
	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

var promotionChoices = []board.PieceType{board.Queen, board.Rook, board.Bishop, board.Knight}

// validateMove runs the legality checks in order and returns the move it would produce,
// without check/checkmate flags or notation. pos is not modified.
func validateMove(pos *board.Position, from, to board.Square, promo board.PieceType) (Move, error) {
	fail := func(kind error, reason Reason) (Move, error) {
		return Move{}, &MoveError{Kind: kind, Reason: reason, From: from, To: to}
	}

	if !from.Valid() || !to.Valid() {
		return fail(ErrMalformedInput, ReasonOutOfRange)
	}
	p, ok := pos.Board.Get(from)
	if !ok {
		return fail(ErrIllegalMove, ReasonNoPiece)
	}
	if p.Color != pos.Turn {
		return fail(ErrNotPlayersTurn, ReasonWrongColor)
	}

	t, found := findTarget(candidateTargets(pos, from), to)
	if !found {
		return fail(ErrIllegalMove, diagnose(pos, p, from, to))
	}

	opponent := core.OppositeColor(p.Color)
	if t.castle != NoCastle {
		if IsAttacked(&pos.Board, from, opponent) {
			return fail(ErrIllegalMove, ReasonCastleOutOfCheck)
		}
		_, _, transit := castleSquares(p.Color, t.castle)
		if IsAttacked(&pos.Board, transit, opponent) || IsAttacked(&pos.Board, to, opponent) {
			return fail(ErrIllegalMove, ReasonCastleThroughCheck)
		}
	}

	promotes := p.Type == board.Pawn && to.Rank() == promotionRank(p.Color)
	switch {
	case promotes && promo == board.NoPieceType:
		return fail(ErrMalformedInput, ReasonPromotionRequired)
	case promotes && !isPromotionChoice(promo):
		return fail(ErrMalformedInput, ReasonInvalidPromotion)
	case !promotes && promo != board.NoPieceType:
		return fail(ErrMalformedInput, ReasonInvalidPromotion)
	}

	m := Move{
		From:      from,
		To:        to,
		Piece:     p.Type,
		Color:     p.Color,
		Capture:   t.capture,
		Castle:    t.castle,
		EnPassant: t.enPassant,
		Promotion: promo,
	}

	after := pos.Clone()
	applyToPosition(after, m)
	if inCheck(&after.Board, p.Color) {
		return fail(ErrIllegalMove, ReasonSelfCheck)
	}
	return m, nil
}

func findTarget(targets []target, to board.Square) (target, bool) {
	for _, t := range targets {
		if t.to == to {
			return t, true
		}
	}
	return target{}, false
}

func isPromotionChoice(pt board.PieceType) bool {
	for _, c := range promotionChoices {
		if c == pt {
			return true
		}
	}
	return false
}

// anyPromotion supplies a queen for pawn moves onto the last rank, for existence checks
func anyPromotion(pos *board.Position, from, to board.Square) board.PieceType {
	if p, ok := pos.Board.Get(from); ok && p.Type == board.Pawn && to.Rank() == promotionRank(p.Color) {
		return board.Queen
	}
	return board.NoPieceType
}

// diagnose explains why to is not among the candidate targets of the piece on from
func diagnose(pos *board.Position, p board.Piece, from, to board.Square) Reason {
	home := board.HomeRank(p.Color)
	if p.Type == board.King && from == board.NewSquare(4, home) && to.Rank() == home && abs(to.File()-from.File()) == 2 {
		side := Kingside
		if to.File() < from.File() {
			side = Queenside
		}
		if p.Moved || !castleAvailable(pos, p.Color, side) {
			return ReasonCastlingRight
		}
		if !castlePathClear(&pos.Board, p.Color, side) {
			return ReasonPathBlocked
		}
	}

	if !reachable(p, from, to) {
		return ReasonUnreachable
	}
	for _, mid := range between(from, to) {
		if _, occupied := pos.Board.Get(mid); occupied && p.Type != board.Knight {
			return ReasonPathBlocked
		}
	}
	occ, occupied := pos.Board.Get(to)
	switch {
	case occupied && occ.Color == p.Color:
		return ReasonFriendlyTarget
	case occupied && p.Type == board.Pawn && to.File() == from.File():
		return ReasonPathBlocked
	}
	return ReasonUnreachable
}

// applyToPosition performs a validated move, updating rights, en passant and clocks
func applyToPosition(pos *board.Position, m Move) {
	b := &pos.Board
	mover, _ := b.Get(m.From)

	if m.EnPassant {
		b.Clear(board.NewSquare(m.To.File(), m.From.Rank()))
	}
	b.Move(m.From, m.To)
	if m.Promotion != board.NoPieceType {
		b.Set(m.To, board.Piece{Type: m.Promotion, Color: mover.Color, Moved: true})
	}
	if m.Castle != NoCastle {
		_, rookFrom, rookTo := castleSquares(mover.Color, m.Castle)
		b.Move(rookFrom, rookTo)
	}

	if mover.Type == board.King {
		pos.Castling.Revoke(mover.Color)
	}
	pos.Castling.RevokeRookSquare(m.From)
	pos.Castling.RevokeRookSquare(m.To)

	pos.EnPassant = board.NoSquare
	if mover.Type == board.Pawn && abs(m.To.Rank()-m.From.Rank()) == 2 {
		pos.EnPassant = board.NewSquare(m.From.File(), (m.From.Rank()+m.To.Rank())/2)
	}

	if mover.Type == board.Pawn || m.Capture {
		pos.Halfmove = 0
	} else {
		pos.Halfmove++
	}
	if mover.Color == core.ColorBlack {
		pos.Fullmove++
	}
	pos.Turn = core.OppositeColor(mover.Color)
}

// legalMovesOn enumerates legal moves of color c in square order, expanding promotions.
// When c is not the side to move the en-passant target is ignored.
func legalMovesOn(pos *board.Position, c core.Color) []Move {
	view := pos
	if pos.Turn != c {
		view = pos.Clone()
		view.Turn = c
		view.EnPassant = board.NoSquare
	}

	var out []Move
	for _, from := range view.Board.Occupied(c) {
		out = append(out, legalMovesFromOn(view, from)...)
	}
	return out
}

func legalMovesFromOn(pos *board.Position, from board.Square) []Move {
	var out []Move
	for _, t := range candidateTargets(pos, from) {
		promos := []board.PieceType{board.NoPieceType}
		if anyPromotion(pos, from, t.to) != board.NoPieceType {
			promos = promotionChoices
		}
		for _, promo := range promos {
			if m, err := validateMove(pos, from, t.to, promo); err == nil {
				out = append(out, m)
			}
		}
	}
	return out
}
