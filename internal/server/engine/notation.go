package engine

import (
	"strings"

	"chessarena/internal/server/board"
)

// Partial is a decoded notation string. Fields the text does not pin down are left
// unset: Piece is NoPieceType for bare coordinates, FromFile/FromRank are -1.
type Partial struct {
	Piece     board.PieceType
	From      board.Square
	FromFile  int
	FromRank  int
	To        board.Square
	Capture   bool
	Castle    CastleSide
	Promotion board.PieceType
}

// Encode renders m in standard algebraic notation against the position before the move.
// The check and checkmate suffixes come from m's flags.
func Encode(m Move, before *GameState) string {
	return encodeOn(&before.pos, m)
}

func encodeOn(pos *board.Position, m Move) string {
	var sb strings.Builder
	switch m.Castle {
	case Kingside:
		sb.WriteString("O-O")
	case Queenside:
		sb.WriteString("O-O-O")
	default:
		if m.Piece == board.Pawn {
			if m.Capture {
				sb.WriteByte(byte('a' + m.From.File()))
			}
		} else {
			sb.WriteByte(m.Piece.Letter())
			sb.WriteString(disambiguation(pos, m))
		}
		if m.Capture {
			sb.WriteByte('x')
		}
		sb.WriteString(m.To.String())
		if m.Promotion != board.NoPieceType {
			sb.WriteByte('=')
			sb.WriteByte(m.Promotion.Letter())
		}
	}

	switch {
	case m.Checkmate:
		sb.WriteByte('#')
	case m.Check:
		sb.WriteByte('+')
	}
	return sb.String()
}

// disambiguation returns the file, rank or full square needed to tell m apart from
// other same-type pieces that can legally reach the same destination
func disambiguation(pos *board.Position, m Move) string {
	var rivals []board.Square
	for _, sq := range pos.Board.Occupied(m.Color) {
		if sq == m.From {
			continue
		}
		if p, _ := pos.Board.Get(sq); p.Type != m.Piece {
			continue
		}
		if _, err := validateMove(pos, sq, m.To, board.NoPieceType); err == nil {
			rivals = append(rivals, sq)
		}
	}
	if len(rivals) == 0 {
		return ""
	}

	sameFile, sameRank := false, false
	for _, sq := range rivals {
		if sq.File() == m.From.File() {
			sameFile = true
		}
		if sq.Rank() == m.From.Rank() {
			sameRank = true
		}
	}
	switch {
	case !sameFile:
		return string(rune('a' + m.From.File()))
	case !sameRank:
		return string(rune('1' + m.From.Rank()))
	}
	return m.From.String()
}

// Decode parses SAN ("Nbd2", "exd8=Q+", "O-O") or coordinate notation ("e7e8q").
// Check and mate suffixes are accepted and ignored.
func Decode(text string) (Partial, error) {
	p := Partial{From: board.NoSquare, FromFile: -1, FromRank: -1, To: board.NoSquare}
	fail := func() (Partial, error) {
		return Partial{}, &MoveError{Kind: ErrMalformedInput, Reason: ReasonUnparsable, From: board.NoSquare, To: board.NoSquare}
	}

	s := strings.TrimRight(strings.TrimSpace(text), "+#!?")
	switch s {
	case "O-O", "0-0":
		p.Piece, p.Castle = board.King, Kingside
		return p, nil
	case "O-O-O", "0-0-0":
		p.Piece, p.Castle = board.King, Queenside
		return p, nil
	}

	if coord, ok := decodeCoordinate(s); ok {
		return coord, nil
	}

	if i := strings.IndexByte(s, '='); i >= 0 {
		if i != len(s)-2 {
			return fail()
		}
		p.Promotion = board.PieceTypeFromLetter(s[i+1])
		if !isPromotionChoice(p.Promotion) {
			return fail()
		}
		s = s[:i]
	} else if n := len(s); n >= 3 && strings.IndexByte("QRBN", s[n-1]) >= 0 && s[n-2] >= '1' && s[n-2] <= '8' {
		p.Promotion = board.PieceTypeFromLetter(s[n-1])
		s = s[:n-1]
	}
	p.Piece = board.Pawn
	if len(s) > 0 && strings.IndexByte("KQRBN", s[0]) >= 0 {
		p.Piece = board.PieceTypeFromLetter(s[0])
		s = s[1:]
	}
	if len(s) < 2 {
		return fail()
	}
	to, err := board.ParseSquare(s[len(s)-2:])
	if err != nil {
		return fail()
	}
	p.To = to

	rest := s[:len(s)-2]
	if strings.HasSuffix(rest, "x") {
		p.Capture = true
		rest = rest[:len(rest)-1]
	}
	if len(rest) > 2 {
		return fail()
	}
	for i := 0; i < len(rest); i++ {
		switch c := rest[i]; {
		case c >= 'a' && c <= 'h' && p.FromFile < 0 && p.FromRank < 0:
			p.FromFile = int(c - 'a')
		case c >= '1' && c <= '8' && p.FromRank < 0:
			p.FromRank = int(c - '1')
		default:
			return fail()
		}
	}
	if p.FromFile >= 0 && p.FromRank >= 0 {
		p.From = board.NewSquare(p.FromFile, p.FromRank)
	}
	if p.Piece != board.Pawn && p.Promotion != board.NoPieceType {
		return fail()
	}
	return p, nil
}

func decodeCoordinate(s string) (Partial, bool) {
	if len(s) != 4 && len(s) != 5 {
		return Partial{}, false
	}
	from, err := board.ParseSquare(s[:2])
	if err != nil {
		return Partial{}, false
	}
	to, err := board.ParseSquare(s[2:4])
	if err != nil {
		return Partial{}, false
	}
	p := Partial{From: from, FromFile: from.File(), FromRank: from.Rank(), To: to}
	if len(s) == 5 {
		p.Promotion = board.PieceTypeFromLetter(s[4])
		if !isPromotionChoice(p.Promotion) {
			return Partial{}, false
		}
	}
	return p, true
}

// Resolve finds the unique legal move of the side to move matching p
func (gs *GameState) Resolve(p Partial) (Move, error) {
	ply := len(gs.log) + 1
	if gs.status.IsTerminal() {
		return Move{}, &MoveError{Kind: ErrGameNotActive, Reason: ReasonTerminal, From: p.From, To: p.To, Ply: ply}
	}
	fail := func(kind error, reason Reason) (Move, error) {
		return Move{}, &MoveError{Kind: kind, Reason: reason, From: p.From, To: p.To, Ply: ply}
	}

	if p.From.Valid() && p.Castle == NoCastle {
		m, err := validateMove(&gs.pos, p.From, p.To, p.Promotion)
		if err != nil {
			if me, ok := err.(*MoveError); ok {
				me.Ply = ply
			}
			return Move{}, err
		}
		if p.Piece != board.NoPieceType && p.Piece != m.Piece {
			return fail(ErrIllegalMove, ReasonPieceMismatch)
		}
		return gs.annotate([]Move{m})[0], nil
	}

	var matches, promoOnly []Move
	for _, m := range legalMovesOn(&gs.pos, gs.pos.Turn) {
		if !partialMatches(p, m) {
			continue
		}
		if m.Promotion != p.Promotion {
			promoOnly = append(promoOnly, m)
			continue
		}
		matches = append(matches, m)
	}

	switch {
	case len(matches) == 1:
		return gs.annotate(matches)[0], nil
	case len(matches) > 1:
		return fail(ErrMalformedInput, ReasonAmbiguous)
	case len(promoOnly) > 0 && p.Promotion == board.NoPieceType:
		return fail(ErrMalformedInput, ReasonPromotionRequired)
	case len(promoOnly) > 0:
		return fail(ErrMalformedInput, ReasonInvalidPromotion)
	case p.Castle != NoCastle:
		return fail(ErrIllegalMove, ReasonCastlingRight)
	}
	return fail(ErrIllegalMove, ReasonUnreachable)
}

func partialMatches(p Partial, m Move) bool {
	if p.Castle != NoCastle {
		return m.Castle == p.Castle
	}
	if m.To != p.To || m.Castle != NoCastle {
		return p.Piece == board.King && m.To == p.To && m.Castle != NoCastle
	}
	if p.Piece != board.NoPieceType && p.Piece != m.Piece {
		return false
	}
	if p.FromFile >= 0 && m.From.File() != p.FromFile {
		return false
	}
	if p.FromRank >= 0 && m.From.Rank() != p.FromRank {
		return false
	}
	return true
}

// ApplyNotation decodes text, resolves it against the current position and applies it
func (gs *GameState) ApplyNotation(text string) (Move, error) {
	p, err := Decode(text)
	if err != nil {
		if me, ok := err.(*MoveError); ok {
			me.Ply = len(gs.log) + 1
		}
		return Move{}, err
	}
	m, err := gs.Resolve(p)
	if err != nil {
		return Move{}, err
	}
	return gs.ApplyMove(m.From, m.To, m.Promotion)
}
