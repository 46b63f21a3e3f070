package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordNewGame asynchronously records a new game
func (s *SQLiteStore) RecordNewGame(record GameRecord) error {
	return s.enqueue("game record", func(tx *sql.Tx) error {
		query := `INSERT INTO games (
			game_id, initial_fen,
			white_player_id, white_name,
			black_player_id, black_name,
			state, winner, start_time_utc, updated_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.GameID, record.InitialFEN,
			record.WhitePlayerID, record.WhiteName,
			record.BlackPlayerID, record.BlackName,
			record.State, record.Winner, record.StartTimeUTC, record.StartTimeUTC,
		)
		return err
	})
}

// RecordMove asynchronously records a move
func (s *SQLiteStore) RecordMove(record MoveRecord) error {
	return s.enqueue("move record", func(tx *sql.Tx) error {
		query := `INSERT INTO moves (
			game_id, move_number, from_square, to_square, piece_type, player_color,
			is_capture, is_check, is_checkmate, is_castle, is_en_passant,
			is_promotion, promotion_piece, notation, fen_after_move, move_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.GameID, record.MoveNumber, record.FromSquare, record.ToSquare,
			record.PieceType, record.PlayerColor,
			record.IsCapture, record.IsCheck, record.IsCheckmate, record.IsCastle, record.IsEnPassant,
			record.IsPromotion, record.PromotionPiece, record.Notation, record.FENAfterMove,
			record.MoveTimeUTC,
		)
		return err
	})
}

// DeleteUndoneMoves asynchronously deletes moves after undo
func (s *SQLiteStore) DeleteUndoneMoves(gameID string, afterMoveNumber int) error {
	return s.enqueue("undo operation", func(tx *sql.Tx) error {
		query := `DELETE FROM moves WHERE game_id = ? AND move_number > ?`
		_, err := tx.Exec(query, gameID, afterMoveNumber)
		return err
	})
}

// UpdateGameState asynchronously records a status change
func (s *SQLiteStore) UpdateGameState(gameID, state, winner string) error {
	return s.enqueue("state update", func(tx *sql.Tx) error {
		query := `UPDATE games SET state = ?, winner = ?, updated_at_utc = ? WHERE game_id = ?`
		_, err := tx.Exec(query, state, winner, time.Now().UTC(), gameID)
		return err
	})
}

// DeleteGame asynchronously removes a game; its moves cascade
func (s *SQLiteStore) DeleteGame(gameID string) error {
	return s.enqueue("game deletion", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM games WHERE game_id = ?`, gameID)
		return err
	})
}

// QueryGames retrieves games with optional filtering
func (s *SQLiteStore) QueryGames(gameID, playerID string) ([]GameRecord, error) {
	query := `SELECT
		game_id, initial_fen,
		white_player_id, white_name,
		black_player_id, black_name,
		state, winner, start_time_utc, updated_at_utc
	FROM games WHERE 1=1`

	var args []interface{}

	// Handle gameID filtering
	if gameID != "" && gameID != "*" {
		query += " AND game_id = ?"
		args = append(args, gameID)
	}

	// Handle playerID filtering
	if playerID != "" && playerID != "*" {
		query += " AND (white_player_id = ? OR black_player_id = ?)"
		args = append(args, playerID, playerID)
	}

	query += " ORDER BY start_time_utc DESC"

	rows, err := s.db.QueryContext(s.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		err := rows.Scan(
			&g.GameID, &g.InitialFEN,
			&g.WhitePlayerID, &g.WhiteName,
			&g.BlackPlayerID, &g.BlackName,
			&g.State, &g.Winner, &g.StartTimeUTC, &g.UpdatedAtUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return games, nil
}

// LoadMoves returns a game's move log in move_number order
func (s *SQLiteStore) LoadMoves(gameID string) ([]MoveRecord, error) {
	var exists int
	err := s.db.QueryRowContext(s.ctx, `SELECT 1 FROM games WHERE game_id = ?`, gameID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	query := `SELECT
		game_id, move_number, from_square, to_square, piece_type, player_color,
		is_capture, is_check, is_checkmate, is_castle, is_en_passant,
		is_promotion, promotion_piece, notation, fen_after_move, move_time_utc
	FROM moves WHERE game_id = ? ORDER BY move_number ASC`

	rows, err := s.db.QueryContext(s.ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		err := rows.Scan(
			&m.GameID, &m.MoveNumber, &m.FromSquare, &m.ToSquare, &m.PieceType, &m.PlayerColor,
			&m.IsCapture, &m.IsCheck, &m.IsCheckmate, &m.IsCastle, &m.IsEnPassant,
			&m.IsPromotion, &m.PromotionPiece, &m.Notation, &m.FENAfterMove, &m.MoveTimeUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return moves, nil
}

var _ Store = (*SQLiteStore)(nil)
