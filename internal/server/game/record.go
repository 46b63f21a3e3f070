package game

import (
	"fmt"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
	"chessarena/internal/server/engine"
)

// Record flattens an applied move into the outbound record used by storage and clients
func Record(ply int, m engine.Move) core.MoveInfo {
	info := core.MoveInfo{
		Ply:         ply,
		From:        m.From.String(),
		To:          m.To.String(),
		Piece:       m.Piece.String(),
		PlayerColor: m.Color.String(),
		IsCapture:   m.Capture,
		IsCheck:     m.Check,
		IsCheckmate: m.Checkmate,
		IsCastle:    m.Castle != engine.NoCastle,
		IsEnPassant: m.EnPassant,
		IsPromotion: m.Promotion != board.NoPieceType,
		Notation:    m.Notation,
	}
	if info.IsPromotion {
		info.PromotionPiece = m.Promotion.String()
	}
	return info
}

// Records flattens a whole log, numbering plies from 1
func Records(moves []engine.Move) []core.MoveInfo {
	out := make([]core.MoveInfo, len(moves))
	for i, m := range moves {
		out[i] = Record(i+1, m)
	}
	return out
}

// FromRecord recovers the fields replay needs. Derived flags are not trusted;
// replay recomputes them.
func FromRecord(info core.MoveInfo) (engine.Move, error) {
	from, err := board.ParseSquare(info.From)
	if err != nil {
		return engine.Move{}, fmt.Errorf("ply %d: from: %w", info.Ply, err)
	}
	to, err := board.ParseSquare(info.To)
	if err != nil {
		return engine.Move{}, fmt.Errorf("ply %d: to: %w", info.Ply, err)
	}
	m := engine.Move{From: from, To: to}
	if info.Piece != "" {
		if m.Piece, err = board.ParsePieceType(info.Piece); err != nil {
			return engine.Move{}, fmt.Errorf("ply %d: %w", info.Ply, err)
		}
	}
	if info.IsPromotion {
		if m.Promotion, err = board.ParsePieceType(info.PromotionPiece); err != nil {
			return engine.Move{}, fmt.Errorf("ply %d: promotion: %w", info.Ply, err)
		}
	}
	return m, nil
}

// FromRecords converts a stored log, stopping at the first unreadable record
func FromRecords(infos []core.MoveInfo) ([]engine.Move, error) {
	out := make([]engine.Move, 0, len(infos))
	for _, info := range infos {
		m, err := FromRecord(info)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
