package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
	"chessarena/internal/server/engine"
	"chessarena/internal/server/game"
	"chessarena/internal/server/service"
)

// Processor handles command execution and coordinates between service and engine layers
type Processor struct {
	svc   *service.Service
	queue *ReplayQueue
}

// New creates a processor; replayWorkers sizes the restore pool when the service has storage
func New(svc *service.Service, replayWorkers int) *Processor {
	p := &Processor{svc: svc}
	if store := svc.Store(); store != nil {
		p.queue = NewReplayQueue(store, replayWorkers)
	}
	return p
}

func (p *Processor) Execute(cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(cmd)
	case CmdUndoMove:
		return p.handleUndoMove(cmd)
	case CmdDeleteGame:
		return p.handleDeleteGame(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdLegalMoves:
		return p.handleLegalMoves(cmd)
	case CmdResign:
		return p.handleResign(cmd)
	case CmdDraw:
		return p.handleDraw(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// isTextSafe rejects control characters in free-form client input
func isTextSafe(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// handleCreateGame creates a new game from the standard or a custom position
func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	initialFEN := strings.TrimSpace(args.FEN)
	if !isTextSafe(initialFEN) {
		return p.errorResponse("invalid FEN characters", core.ErrInvalidFEN)
	}

	gameID := p.svc.GenerateGameID()
	whitePlayer := core.NewPlayer(args.White, core.ColorWhite)
	blackPlayer := core.NewPlayer(args.Black, core.ColorBlack)

	if err := p.svc.CreateGame(gameID, whitePlayer, blackPlayer, initialFEN); err != nil {
		if errors.Is(err, engine.ErrMalformedInput) {
			return p.errorResponse(err.Error(), core.ErrInvalidFEN)
		}
		return p.serviceError(err)
	}

	return p.gameResponse(gameID, nil)
}

func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	return p.gameResponse(cmd.GameID, nil)
}

// handleMakeMove applies a coordinate or notation move for the side to move
func (p *Processor) handleMakeMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	notation := strings.TrimSpace(args.Notation)
	var from, to board.Square
	var promo board.PieceType
	if notation == "" {
		var err error
		if from, err = board.ParseSquare(strings.ToLower(args.From)); err != nil {
			return p.errorResponse(err.Error(), core.ErrMalformedMove)
		}
		if to, err = board.ParseSquare(strings.ToLower(args.To)); err != nil {
			return p.errorResponse(err.Error(), core.ErrMalformedMove)
		}
		if args.Promotion != "" {
			if promo, err = board.ParsePieceType(args.Promotion); err != nil {
				return p.errorResponse(err.Error(), core.ErrMalformedMove)
			}
		}
	} else if !isTextSafe(notation) {
		return p.errorResponse("invalid move characters", core.ErrMalformedMove)
	}

	var applied core.MoveInfo
	err := p.svc.Update(cmd.GameID, func(g *game.Game) error {
		if err := service.CheckTurn(g, args.PlayerID); err != nil {
			return err
		}
		var m engine.Move
		var err error
		if notation != "" {
			m, err = g.MoveNotation(notation)
		} else {
			m, err = g.Move(from, to, promo)
		}
		if err != nil {
			return err
		}
		applied = game.Record(g.MoveCount(), m)
		return nil
	})
	if err != nil {
		return p.serviceError(err)
	}

	return p.gameResponse(cmd.GameID, &applied)
}

// handleUndoMove reverts the last plies, reopening a finished game
func (p *Processor) handleUndoMove(cmd Command) ProcessorResponse {
	args := core.UndoRequest{Count: 1}
	if req, ok := cmd.Args.(core.UndoRequest); ok && req.Count > 0 {
		args = req
	}

	err := p.svc.Update(cmd.GameID, func(g *game.Game) error {
		return g.UndoMoves(args.Count)
	})
	if err != nil {
		return p.serviceError(err)
	}
	return p.gameResponse(cmd.GameID, nil)
}

func (p *Processor) handleResign(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ResignRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	color, err := core.ParseColor(args.Color)
	if err != nil || color == 0 {
		return p.errorResponse(fmt.Sprintf("invalid color: %q", args.Color), core.ErrInvalidRequest)
	}

	err = p.svc.Update(cmd.GameID, func(g *game.Game) error {
		return g.Resign(color)
	})
	if err != nil {
		return p.serviceError(err)
	}
	return p.gameResponse(cmd.GameID, nil)
}

// handleDraw dispatches draw offers, answers and claims
func (p *Processor) handleDraw(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.DrawRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	color, err := core.ParseColor(args.Color)
	if err != nil || color == 0 {
		return p.errorResponse(fmt.Sprintf("invalid color: %q", args.Color), core.ErrInvalidRequest)
	}

	err = p.svc.Update(cmd.GameID, func(g *game.Game) error {
		switch args.Action {
		case "offer":
			return g.OfferDraw(color)
		case "accept":
			return g.AcceptDraw(color)
		case "decline":
			return g.DeclineDraw(color)
		case "claim":
			return g.ClaimDraw()
		default:
			return fmt.Errorf("%w: unknown draw action %q", errBadRequest, args.Action)
		}
	})
	if err != nil {
		return p.serviceError(err)
	}
	return p.gameResponse(cmd.GameID, nil)
}

// handleLegalMoves lists the legal destinations from one square
func (p *Processor) handleLegalMoves(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(LegalMovesArgs)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	from, err := board.ParseSquare(strings.ToLower(args.From))
	if err != nil {
		return p.errorResponse(err.Error(), core.ErrMalformedMove)
	}

	resp := core.LegalMovesResponse{From: from.String(), Targets: []core.MoveInfo{}}
	err = p.svc.ViewGame(cmd.GameID, func(g *game.Game) {
		ply := g.MoveCount() + 1
		for _, m := range g.LegalMovesFrom(from) {
			resp.Targets = append(resp.Targets, game.Record(ply, m))
		}
	})
	if err != nil {
		return p.serviceError(err)
	}

	return ProcessorResponse{
		Success: true,
		Data:    resp,
	}
}

// handleDeleteGame removes a game
func (p *Processor) handleDeleteGame(cmd Command) ProcessorResponse {
	if err := p.svc.DeleteGame(cmd.GameID); err != nil {
		return p.serviceError(err)
	}

	return ProcessorResponse{
		Success: true,
	}
}

// handleGetBoard returns board visualization
func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	var resp core.BoardResponse
	err := p.svc.ViewGame(cmd.GameID, func(g *game.Game) {
		b := g.Board()
		resp = core.BoardResponse{
			FEN:   g.CurrentFEN(),
			Board: b.ToASCII(),
		}
	})
	if err != nil {
		return p.serviceError(err)
	}

	return ProcessorResponse{
		Success: true,
		Data:    resp,
	}
}

// Snapshot builds the current response for a game, as pushed to watchers
func (p *Processor) Snapshot(gameID string) (core.GameResponse, error) {
	var resp core.GameResponse
	err := p.svc.ViewGame(gameID, func(g *game.Game) {
		resp = BuildGameResponse(gameID, g)
	})
	return resp, err
}

// gameResponse reads the game back under its lock; lastMove overrides the log's tail
func (p *Processor) gameResponse(gameID string, lastMove *core.MoveInfo) ProcessorResponse {
	resp, err := p.Snapshot(gameID)
	if err != nil {
		return p.serviceError(err)
	}
	if lastMove != nil {
		resp.LastMove = lastMove
	}
	return ProcessorResponse{
		Success: true,
		Data:    resp,
	}
}

// BuildGameResponse constructs standard game response
func BuildGameResponse(gameID string, g *game.Game) core.GameResponse {
	resp := core.GameResponse{
		GameID:       gameID,
		FEN:          g.CurrentFEN(),
		InitialFEN:   g.InitialFEN(),
		Turn:         g.NextTurnColor().String(),
		State:        g.State().String(),
		Moves:        game.Records(g.Moves()),
		CanClaimDraw: g.CanClaimDraw(),
		Revision:     g.Revision(),
		Players: core.PlayersResponse{
			White: g.GetPlayer(core.ColorWhite),
			Black: g.GetPlayer(core.ColorBlack),
		},
	}
	if w := g.Winner(); w != 0 {
		resp.Winner = w.String()
	}
	if d := g.DrawOffer(); d != 0 {
		resp.DrawOffer = d.String()
	}

	b := g.Board()
	for rank, row := range b.Grid() {
		for file, piece := range row {
			if piece != nil {
				resp.Board[rank][file] = string(piece.FENChar())
			}
		}
	}

	// Include last move if available
	if n := len(resp.Moves); n > 0 {
		last := resp.Moves[n-1]
		resp.LastMove = &last
	}

	return resp
}

var errBadRequest = errors.New("bad request")

// serviceError maps domain errors onto API error codes
func (p *Processor) serviceError(err error) ProcessorResponse {
	return p.errorResponse(err.Error(), ErrorCode(err))
}

// ErrorCode returns the API error code for an error from the game layers
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return core.ErrGameNotFound
	case errors.Is(err, service.ErrTooManyGames):
		return core.ErrResourceLimit
	case errors.Is(err, engine.ErrReplayCorruption):
		// Checked before move kinds: a replay error also wraps the failing move's error
		return core.ErrReplayCorruption
	case errors.Is(err, service.ErrNotYourTurn),
		errors.Is(err, service.ErrNotAPlayer),
		errors.Is(err, engine.ErrNotPlayersTurn):
		return core.ErrNotYourTurn
	case errors.Is(err, engine.ErrGameNotActive):
		return core.ErrGameOver
	case errors.Is(err, engine.ErrMalformedInput):
		return core.ErrMalformedMove
	case errors.Is(err, engine.ErrIllegalMove):
		return core.ErrInvalidMove
	case errors.Is(err, engine.ErrDrawNotClaimable),
		errors.Is(err, game.ErrNoDrawOffer),
		errors.Is(err, game.ErrOwnDrawOffer),
		errors.Is(err, game.ErrNothingToUndo),
		errors.Is(err, errBadRequest):
		return core.ErrInvalidRequest
	default:
		return core.ErrInternalError
	}
}

// errorResponse creates error response
func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

// RestoreGames rebuilds every unfinished persisted game into the service.
// A game whose log does not replay is logged and skipped.
func (p *Processor) RestoreGames(ctx context.Context) (restored, failed int, err error) {
	if p.queue == nil {
		return 0, 0, nil
	}
	records, err := p.svc.Store().QueryGames("", "")
	if err != nil {
		return 0, 0, fmt.Errorf("query games: %w", err)
	}

	live := records[:0]
	for _, rec := range records {
		if state, perr := core.ParseState(rec.State); perr == nil && state.IsTerminal() {
			continue
		}
		live = append(live, rec)
	}

	for _, result := range p.queue.ReplayAll(ctx, live) {
		if result.Error != nil {
			log.Printf("Game %s not restored: %v", result.GameID, result.Error)
			failed++
			continue
		}
		if aerr := p.svc.AddGame(result.GameID, result.Game); aerr != nil {
			log.Printf("Game %s not restored: %v", result.GameID, aerr)
			failed++
			continue
		}
		restored++
	}
	return restored, failed, nil
}

// Close cleans up resources
func (p *Processor) Close() error {
	if p.queue == nil {
		return nil
	}
	return p.queue.Shutdown(5 * time.Second)
}
