package service

import (
	"chessarena/internal/server/core"
	"chessarena/internal/server/game"
	"chessarena/internal/server/storage"
)

// snapshot is what persistence compares before and after a mutation
type snapshot struct {
	moves  int
	state  core.State
	winner core.Color
}

func snapshotOf(g *game.Game) snapshot {
	return snapshot{moves: g.MoveCount(), state: g.State(), winner: g.Winner()}
}

// persist writes the difference between before and the game's current state.
// Undo shows up as a shorter log, so replays after an undo first trim the stored moves;
// moves are then appended from the first ply storage has not seen.
func (s *Service) persist(gameID string, before snapshot, g *game.Game) {
	if s.store == nil {
		return
	}

	moves := g.Moves()
	common := before.moves
	if len(moves) < common {
		common = len(moves)
		s.store.DeleteUndoneMoves(gameID, common)
	}

	if len(moves) > common {
		records := game.Records(moves)
		for i := common; i < len(moves); i++ {
			fen := ""
			if i == len(moves)-1 {
				fen = g.CurrentFEN()
			}
			s.store.RecordMove(storage.NewMoveRecord(gameID, records[i], fen))
		}
	}

	if g.State() != before.state || g.Winner() != before.winner {
		s.store.UpdateGameState(gameID, g.State().String(), colorCode(g.Winner()))
	}
}
