package commands

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"chessarena/internal/client/display"
	"chessarena/internal/client/session"
	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

// coordMove matches "e2e4" or "e7e8q"; anything else is sent as SAN
var coordMove = regexp.MustCompile(`^([a-h][1-8])-?([a-h][1-8])([qrbnQRBN]?)$`)

func (r *Registry) registerGameCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Create a new game",
		Usage:       "new [white-name] [black-name]",
		Handler:     r.newGameHandler,
	})

	r.Register(&Command{
		Name:        "load",
		ShortName:   "l",
		Description: "Create a game from a FEN position",
		Usage:       "load <fen>",
		Handler:     r.loadGameHandler,
	})

	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Join/set current game ID",
		Usage:       "join <gameId>",
		Handler:     r.joinGameHandler,
	})

	r.Register(&Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Make a move",
		Usage:       "move <e2e4|Nf3|O-O>",
		Handler:     r.moveHandler,
	})

	r.Register(&Command{
		Name:        "legal",
		ShortName:   "g",
		Description: "List legal moves from a square",
		Usage:       "legal <square>",
		Handler:     r.legalHandler,
	})

	r.Register(&Command{
		Name:        "undo",
		ShortName:   "u",
		Description: "Undo moves",
		Usage:       "undo [count]",
		Handler:     r.undoHandler,
	})

	r.Register(&Command{
		Name:        "resign",
		ShortName:   "r",
		Description: "Resign for a side (default: side to move)",
		Usage:       "resign [w|b]",
		Handler:     r.resignHandler,
	})

	r.Register(&Command{
		Name:        "draw",
		ShortName:   "w",
		Description: "Offer, accept, decline or claim a draw",
		Usage:       "draw <offer|accept|decline|claim> [w|b]",
		Handler:     r.drawHandler,
	})

	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Show board and game state",
		Usage:       "show",
		Handler:     r.showBoardHandler,
	})

	r.Register(&Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show raw game JSON",
		Usage:       "state",
		Handler:     r.gameStateHandler,
	})

	r.Register(&Command{
		Name:        "delete",
		ShortName:   "d",
		Description: "Delete a game",
		Usage:       "delete [gameId]",
		Handler:     r.deleteGameHandler,
	})

	r.Register(&Command{
		Name:        "poll",
		ShortName:   "p",
		Description: "Long-poll for game updates",
		Usage:       "poll",
		Handler:     r.pollHandler,
	})
}

func (r *Registry) requireGame(s *session.Session) (string, error) {
	if s.CurrentGame == "" {
		return "", fmt.Errorf("no current game, use 'new' or 'join'")
	}
	return s.CurrentGame, nil
}

func (r *Registry) newGameHandler(s *session.Session, args []string) error {
	req := &core.CreateGameRequest{}
	if len(args) > 0 {
		req.White.Name = args[0]
	}
	if len(args) > 1 {
		req.Black.Name = args[1]
	}
	return r.createGame(s, req)
}

func (r *Registry) loadGameHandler(s *session.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: load <fen>")
	}
	return r.createGame(s, &core.CreateGameRequest{FEN: strings.Join(args, " ")})
}

func (r *Registry) createGame(s *session.Session, req *core.CreateGameRequest) error {
	resp, err := s.Client.CreateGame(req)
	if err != nil {
		return err
	}
	s.Track(resp)

	fmt.Fprintln(r.out, display.Paint(s.Color, display.Green, "Game created: "+resp.GameID))
	r.printSummary(s, resp)
	return nil
}

func (r *Registry) joinGameHandler(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: join <gameId>")
	}

	resp, err := s.Client.GetGame(args[0])
	if err != nil {
		return err
	}
	s.Track(resp)

	fmt.Fprintln(r.out, display.Paint(s.Color, display.Green, "Joined game: "+resp.GameID))
	r.printSummary(s, resp)
	return nil
}

func (r *Registry) moveHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: move <e2e4|Nf3|O-O>")
	}

	req := &core.MoveRequest{}
	if m := coordMove.FindStringSubmatch(args[0]); m != nil {
		req.From, req.To, req.Promotion = m[1], m[2], strings.ToLower(m[3])
	} else {
		req.Notation = args[0]
	}

	resp, err := s.Client.MakeMove(gameID, req)
	if err != nil {
		return err
	}
	s.Track(resp)

	if resp.LastMove != nil {
		fmt.Fprintf(r.out, "%s %s\n", display.Paint(s.Color, display.Green, "Played"), resp.LastMove.Notation)
	}
	r.printSummary(s, resp)
	return nil
}

func (r *Registry) legalHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: legal <square>")
	}

	resp, err := s.Client.LegalMoves(gameID, args[0])
	if err != nil {
		return err
	}
	if len(resp.Targets) == 0 {
		fmt.Fprintf(r.out, "No legal moves from %s\n", resp.From)
		return nil
	}
	notes := make([]string, len(resp.Targets))
	for i, m := range resp.Targets {
		notes[i] = m.Notation
	}
	fmt.Fprintf(r.out, "Legal from %s: %s\n", resp.From, strings.Join(notes, " "))
	return nil
}

func (r *Registry) undoHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}

	count := 1
	if len(args) > 0 {
		count, err = strconv.Atoi(args[0])
		if err != nil || count < 1 {
			return fmt.Errorf("invalid count: %s", args[0])
		}
	}

	resp, err := s.Client.UndoMoves(gameID, count)
	if err != nil {
		return err
	}
	s.Track(resp)

	fmt.Fprintln(r.out, display.Paint(s.Color, display.Green, fmt.Sprintf("Undid %d move(s)", count)))
	r.printSummary(s, resp)
	return nil
}

// sideArg picks the explicit side in args, falling back to def
func sideArg(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}

func (r *Registry) resignHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}
	current, err := r.fresh(s, gameID)
	if err != nil {
		return err
	}

	resp, err := s.Client.Resign(gameID, sideArg(args, current.Turn))
	if err != nil {
		return err
	}
	s.Track(resp)
	r.printSummary(s, resp)
	return nil
}

func (r *Registry) drawHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: draw <offer|accept|decline|claim> [w|b]")
	}
	current, err := r.fresh(s, gameID)
	if err != nil {
		return err
	}

	action := args[0]
	side := current.Turn
	if (action == "accept" || action == "decline") && current.DrawOffer != "" {
		side = "w"
		if current.DrawOffer == "w" {
			side = "b"
		}
	}
	side = sideArg(args[1:], side)

	resp, err := s.Client.Draw(gameID, side, action)
	if err != nil {
		return err
	}
	s.Track(resp)

	switch {
	case resp.DrawOffer != "":
		fmt.Fprintf(r.out, "Draw offered by %s\n", resp.DrawOffer)
	case action == "decline":
		fmt.Fprintln(r.out, "Draw offer declined")
	}
	r.printSummary(s, resp)
	return nil
}

func (r *Registry) showBoardHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}

	board, err := s.Client.GetBoard(gameID)
	if err != nil {
		return err
	}
	game, err := r.fresh(s, gameID)
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out)
	display.RenderBoard(r.out, board.Board, s.Color)
	fmt.Fprintf(r.out, "\nFEN: %s\n", board.FEN)
	r.printSummary(s, game)

	if len(game.Moves) > 0 {
		fmt.Fprintf(r.out, "History: %s\n", history(game.InitialFEN, game.Moves))
	}
	return nil
}

func (r *Registry) gameStateHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}
	game, err := r.fresh(s, gameID)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, display.Paint(s.Color, display.Cyan, "Game State:"))
	display.PrettyPrintJSON(r.out, game)
	return nil
}

func (r *Registry) deleteGameHandler(s *session.Session, args []string) error {
	gameID := s.CurrentGame
	if len(args) > 0 {
		gameID = args[0]
	}
	if gameID == "" {
		return fmt.Errorf("usage: delete [gameId]")
	}

	if err := s.Client.DeleteGame(gameID); err != nil {
		return err
	}
	if gameID == s.CurrentGame {
		s.SetCurrentGame("")
	}
	fmt.Fprintln(r.out, display.Paint(s.Color, display.Green, "Game deleted: "+gameID))
	return nil
}

func (r *Registry) pollHandler(s *session.Session, args []string) error {
	gameID, err := r.requireGame(s)
	if err != nil {
		return err
	}

	revision := s.Revision()
	fmt.Fprintln(r.out, display.Paint(s.Color, display.Cyan, fmt.Sprintf("Long-polling for updates (revision %d)...", revision)))

	resp, err := s.Client.WaitGame(gameID, revision)
	if err != nil {
		return err
	}
	if resp.GameID == "" {
		// Server closed the poll without a body
		fmt.Fprintln(r.out, display.Paint(s.Color, display.Yellow, "No updates"))
		return nil
	}
	s.Track(resp)

	if resp.Revision != revision {
		fmt.Fprintln(r.out, display.Paint(s.Color, display.Green, "Game updated"))
		if resp.LastMove != nil {
			fmt.Fprintf(r.out, "Last move: %s\n", resp.LastMove.Notation)
		}
	} else {
		fmt.Fprintln(r.out, display.Paint(s.Color, display.Yellow, "No updates"))
	}
	r.printSummary(s, resp)
	return nil
}

// fresh refetches the game so side defaults follow the server
func (r *Registry) fresh(s *session.Session, gameID string) (*core.GameResponse, error) {
	resp, err := s.Client.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	s.Track(resp)
	return resp, nil
}

func (r *Registry) printSummary(s *session.Session, g *core.GameResponse) {
	line := fmt.Sprintf("Turn: %s | State: %s | Moves: %d", display.ColorForTurn(g.Turn, s.Color), g.State, len(g.Moves))
	if g.Winner != "" {
		line += " | Winner: " + g.Winner
	}
	if g.CanClaimDraw {
		line += " | draw claimable"
	}
	fmt.Fprintln(r.out, line)
}

// history renders the move log as numbered pairs
func history(initialFEN string, moves []core.MoveInfo) string {
	var sb strings.Builder
	for i, m := range moves {
		if i > 0 {
			sb.WriteByte(' ')
		}
		num, mover := board.MoveNumber(initialFEN, m.Ply)
		if mover == core.ColorWhite {
			sb.WriteString(fmt.Sprintf("%d. ", num))
		} else if i == 0 {
			sb.WriteString(fmt.Sprintf("%d... ", num))
		}
		sb.WriteString(m.Notation)
	}
	return sb.String()
}
