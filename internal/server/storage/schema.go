package storage

import (
	"time"

	"chessarena/internal/server/core"
)

// GameRecord represents a row in the games table
type GameRecord struct {
	GameID        string    `db:"game_id" json:"gameId"`
	InitialFEN    string    `db:"initial_fen" json:"initialFen"`
	WhitePlayerID string    `db:"white_player_id" json:"whitePlayerId"`
	WhiteName     string    `db:"white_name" json:"whiteName,omitempty"`
	BlackPlayerID string    `db:"black_player_id" json:"blackPlayerId"`
	BlackName     string    `db:"black_name" json:"blackName,omitempty"`
	State         string    `db:"state" json:"state"`
	Winner        string    `db:"winner" json:"winner,omitempty"`
	StartTimeUTC  time.Time `db:"start_time_utc" json:"startTimeUtc"`
	UpdatedAtUTC  time.Time `db:"updated_at_utc" json:"updatedAtUtc"`
}

// MoveRecord represents a row in the moves table: one applied ply, append-only,
// ordered by MoveNumber
type MoveRecord struct {
	GameID         string    `db:"game_id" json:"gameId"`
	MoveNumber     int       `db:"move_number" json:"moveNumber"`
	FromSquare     string    `db:"from_square" json:"from"`
	ToSquare       string    `db:"to_square" json:"to"`
	PieceType      string    `db:"piece_type" json:"piece"`
	PlayerColor    string    `db:"player_color" json:"playerColor"`
	IsCapture      bool      `db:"is_capture" json:"isCapture"`
	IsCheck        bool      `db:"is_check" json:"isCheck"`
	IsCheckmate    bool      `db:"is_checkmate" json:"isCheckmate"`
	IsCastle       bool      `db:"is_castle" json:"isCastle"`
	IsEnPassant    bool      `db:"is_en_passant" json:"isEnPassant"`
	IsPromotion    bool      `db:"is_promotion" json:"isPromotion"`
	PromotionPiece string    `db:"promotion_piece" json:"promotionPiece,omitempty"`
	Notation       string    `db:"notation" json:"notation"`
	FENAfterMove   string    `db:"fen_after_move" json:"fenAfterMove"`
	MoveTimeUTC    time.Time `db:"move_time_utc" json:"moveTimeUtc"`
}

// NewMoveRecord builds a row from the flat per-ply record
func NewMoveRecord(gameID string, info core.MoveInfo, fenAfter string) MoveRecord {
	return MoveRecord{
		GameID:         gameID,
		MoveNumber:     info.Ply,
		FromSquare:     info.From,
		ToSquare:       info.To,
		PieceType:      info.Piece,
		PlayerColor:    info.PlayerColor,
		IsCapture:      info.IsCapture,
		IsCheck:        info.IsCheck,
		IsCheckmate:    info.IsCheckmate,
		IsCastle:       info.IsCastle,
		IsEnPassant:    info.IsEnPassant,
		IsPromotion:    info.IsPromotion,
		PromotionPiece: info.PromotionPiece,
		Notation:       info.Notation,
		FENAfterMove:   fenAfter,
		MoveTimeUTC:    time.Now().UTC(),
	}
}

// Info converts the row back to the flat per-ply record
func (r MoveRecord) Info() core.MoveInfo {
	return core.MoveInfo{
		Ply:            r.MoveNumber,
		From:           r.FromSquare,
		To:             r.ToSquare,
		Piece:          r.PieceType,
		PlayerColor:    r.PlayerColor,
		IsCapture:      r.IsCapture,
		IsCheck:        r.IsCheck,
		IsCheckmate:    r.IsCheckmate,
		IsCastle:       r.IsCastle,
		IsEnPassant:    r.IsEnPassant,
		IsPromotion:    r.IsPromotion,
		PromotionPiece: r.PromotionPiece,
		Notation:       r.Notation,
	}
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	initial_fen TEXT NOT NULL,
	white_player_id TEXT NOT NULL,
	white_name TEXT NOT NULL DEFAULT '',
	black_player_id TEXT NOT NULL,
	black_name TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT 'active'
		CHECK(state IN ('active', 'check', 'checkmate', 'stalemate', 'resigned', 'drawn')),
	winner TEXT NOT NULL DEFAULT '' CHECK(winner IN ('', 'w', 'b')),
	start_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	game_id TEXT NOT NULL,
	move_number INTEGER NOT NULL,
	from_square TEXT NOT NULL,
	to_square TEXT NOT NULL,
	piece_type TEXT NOT NULL,
	player_color TEXT NOT NULL CHECK(player_color IN ('w', 'b')),
	is_capture INTEGER NOT NULL DEFAULT 0,
	is_check INTEGER NOT NULL DEFAULT 0,
	is_checkmate INTEGER NOT NULL DEFAULT 0,
	is_castle INTEGER NOT NULL DEFAULT 0,
	is_en_passant INTEGER NOT NULL DEFAULT 0,
	is_promotion INTEGER NOT NULL DEFAULT 0,
	promotion_piece TEXT NOT NULL DEFAULT '',
	notation TEXT NOT NULL,
	fen_after_move TEXT NOT NULL,
	move_time_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (game_id) REFERENCES games(game_id) ON DELETE CASCADE,
	UNIQUE(game_id, move_number)
);

CREATE INDEX IF NOT EXISTS idx_moves_game_id ON moves(game_id);
CREATE INDEX IF NOT EXISTS idx_games_white_player ON games(white_player_id);
CREATE INDEX IF NOT EXISTS idx_games_black_player ON games(black_player_id);
CREATE INDEX IF NOT EXISTS idx_games_state ON games(state);
`
