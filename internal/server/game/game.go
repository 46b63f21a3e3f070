package game

import (
	"errors"
	"fmt"
	"time"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
	"chessarena/internal/server/engine"
)

var (
	ErrNoDrawOffer   = errors.New("no draw offer pending")
	ErrOwnDrawOffer  = errors.New("cannot answer own draw offer")
	ErrNothingToUndo = errors.New("nothing to undo")
)

// Game is one live game: engine state plus the seats and the pending draw offer.
// Game is not safe for concurrent use; the service serializes access per game.
type Game struct {
	state     *engine.GameState
	players   map[core.Color]*core.Player
	drawOffer core.Color
	revision  int
	createdAt time.Time
}

// New starts a game from initialFEN, or the standard position when empty
func New(initialFEN string, whitePlayer, blackPlayer *core.Player) (*Game, error) {
	if initialFEN == "" {
		initialFEN = board.StartingFEN
	}
	gs, err := engine.NewGameFromFEN(initialFEN)
	if err != nil {
		return nil, err
	}
	return &Game{
		state: gs,
		players: map[core.Color]*core.Player{
			core.ColorWhite: whitePlayer,
			core.ColorBlack: blackPlayer,
		},
		createdAt: time.Now().UTC(),
	}, nil
}

// Restore rebuilds a persisted game by replaying its move log, then reapplies an
// outcome that the board cannot express (resignation, agreed or claimed draw)
func Restore(initialFEN string, whitePlayer, blackPlayer *core.Player, moves []engine.Move, state core.State, winner core.Color) (*Game, error) {
	g, err := New(initialFEN, whitePlayer, blackPlayer)
	if err != nil {
		return nil, err
	}
	gs, err := engine.ReconstructFrom(g.state.InitialFEN(), moves)
	if err != nil {
		return nil, err
	}
	g.state = gs

	switch state {
	case core.StateResigned:
		if winner == 0 {
			return nil, fmt.Errorf("resigned game without winner")
		}
		err = gs.Resign(core.OppositeColor(winner))
	case core.StateDrawn:
		if gs.Status() != core.StateDrawn {
			err = gs.AgreeDraw()
		}
	}
	if err != nil && !errors.Is(err, engine.ErrGameNotActive) {
		return nil, err
	}
	g.revision = gs.Ply()
	return g, nil
}

// Move applies a coordinate move. A pending draw offer lapses when a move is made.
func (g *Game) Move(from, to board.Square, promo board.PieceType) (engine.Move, error) {
	m, err := g.state.ApplyMove(from, to, promo)
	if err != nil {
		return engine.Move{}, err
	}
	g.drawOffer = 0
	g.revision++
	return m, nil
}

// MoveNotation applies a move given as SAN or coordinate text
func (g *Game) MoveNotation(text string) (engine.Move, error) {
	m, err := g.state.ApplyNotation(text)
	if err != nil {
		return engine.Move{}, err
	}
	g.drawOffer = 0
	g.revision++
	return m, nil
}

// UndoMoves drops the last count plies by replaying the shortened log
func (g *Game) UndoMoves(count int) error {
	if count < 1 {
		return fmt.Errorf("invalid undo count: %d", count)
	}
	available := g.state.Ply()
	if available == 0 {
		return ErrNothingToUndo
	}
	if available < count {
		return fmt.Errorf("cannot undo %d moves: only %d moves available", count, available)
	}

	gs, err := g.state.Truncate(available - count)
	if err != nil {
		return err
	}
	g.state = gs
	g.drawOffer = 0
	g.revision++
	return nil
}

func (g *Game) Resign(color core.Color) error {
	if err := g.state.Resign(color); err != nil {
		return err
	}
	g.drawOffer = 0
	g.revision++
	return nil
}

// OfferDraw records color's offer; offering again is a no-op
func (g *Game) OfferDraw(color core.Color) error {
	if g.state.Status().IsTerminal() {
		return engine.ErrGameNotActive
	}
	if g.drawOffer == core.OppositeColor(color) {
		// Crossing offers amount to agreement
		return g.AcceptDraw(color)
	}
	if g.drawOffer != color {
		g.drawOffer = color
		g.revision++
	}
	return nil
}

// AcceptDraw ends the game drawn when the opponent of color has an offer pending
func (g *Game) AcceptDraw(color core.Color) error {
	if err := g.answerable(color); err != nil {
		return err
	}
	if err := g.state.AgreeDraw(); err != nil {
		return err
	}
	g.drawOffer = 0
	g.revision++
	return nil
}

func (g *Game) DeclineDraw(color core.Color) error {
	if err := g.answerable(color); err != nil {
		return err
	}
	g.drawOffer = 0
	g.revision++
	return nil
}

func (g *Game) answerable(color core.Color) error {
	if g.state.Status().IsTerminal() {
		return engine.ErrGameNotActive
	}
	switch g.drawOffer {
	case 0:
		return ErrNoDrawOffer
	case color:
		return ErrOwnDrawOffer
	}
	return nil
}

// ClaimDraw ends the game under the fifty-move, repetition or material rules
func (g *Game) ClaimDraw() error {
	if err := g.state.ClaimDraw(); err != nil {
		return err
	}
	g.drawOffer = 0
	g.revision++
	return nil
}

func (g *Game) State() core.State         { return g.state.Status() }
func (g *Game) Winner() core.Color        { return g.state.Winner() }
func (g *Game) NextTurnColor() core.Color { return g.state.Turn() }
func (g *Game) CurrentFEN() string        { return g.state.FEN() }
func (g *Game) InitialFEN() string        { return g.state.InitialFEN() }
func (g *Game) Board() board.Board        { return g.state.Board() }
func (g *Game) Moves() []engine.Move      { return g.state.Log() }
func (g *Game) MoveCount() int            { return g.state.Ply() }
func (g *Game) DrawOffer() core.Color     { return g.drawOffer }
func (g *Game) CanClaimDraw() bool        { return g.state.CanClaimDraw() }
func (g *Game) CreatedAt() time.Time      { return g.createdAt }

// Revision increases on every change a watcher could observe
func (g *Game) Revision() int { return g.revision }

func (g *Game) LastMove() (engine.Move, bool) { return g.state.LastMove() }

func (g *Game) LegalMovesFrom(sq board.Square) []engine.Move {
	return g.state.LegalMovesFrom(sq)
}

func (g *Game) GetPlayer(color core.Color) *core.Player {
	return g.players[color]
}

func (g *Game) NextPlayer() *core.Player {
	return g.players[g.NextTurnColor()]
}

// PlayerColor finds the seat held by playerID
func (g *Game) PlayerColor(playerID string) (core.Color, bool) {
	for _, color := range []core.Color{core.ColorWhite, core.ColorBlack} {
		if p := g.players[color]; p != nil && p.ID == playerID {
			return color, true
		}
	}
	return 0, false
}
