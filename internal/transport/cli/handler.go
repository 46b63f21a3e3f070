package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chessarena/internal/cli"
	"chessarena/internal/server/core"
	"chessarena/internal/server/processor"
)

// CLIHandler runs a hot-seat game in the terminal through the same processor
// the HTTP API uses
type CLIHandler struct {
	proc   *processor.Processor
	view   *cli.CLI
	gameID string
}

func New(proc *processor.Processor, view *cli.CLI) *CLIHandler {
	return &CLIHandler{
		proc: proc,
		view: view,
	}
}

// Run is the main loop; it returns when input ends or the user quits
func (h *CLIHandler) Run() {
	for {
		cmd, err := h.view.GetCommand(h.getPrompt())
		if err != nil {
			break
		}

		// Process command - returns false to exit
		if !h.ProcessCommand(cmd) {
			break
		}
	}
}

// getPrompt shows whose turn it is while a game is running
func (h *CLIHandler) getPrompt() string {
	if h.gameID == "" {
		return "> "
	}
	g, err := h.current()
	if err != nil || core.IsTerminalState(g.State) {
		return "> "
	}
	if g.State == core.StateCheck.String() {
		return fmt.Sprintf("[%s+]> ", g.Turn)
	}
	return fmt.Sprintf("[%s]> ", g.Turn)
}

// execute runs a command and unwraps the processor's error response
func (h *CLIHandler) execute(cmd processor.Command) (any, error) {
	resp := h.proc.Execute(cmd)
	if !resp.Success {
		return nil, errors.New(resp.Error.Error)
	}
	return resp.Data, nil
}

func (h *CLIHandler) current() (core.GameResponse, error) {
	data, err := h.execute(processor.NewGetGameCommand(h.gameID))
	if err != nil {
		return core.GameResponse{}, err
	}
	return data.(core.GameResponse), nil
}

// ProcessCommand handles one command; it returns false to exit
func (h *CLIHandler) ProcessCommand(cmd *cli.Command) bool {
	switch cmd.Type {
	case cli.CmdQuit:
		return false

	case cli.CmdNone:
		return true

	case cli.CmdNew:
		h.handleNewGame("")

	case cli.CmdResume:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: resume <FEN string>")
			return true
		}
		h.handleNewGame(strings.Join(cmd.Args, " "))

	case cli.CmdHelp:
		h.view.ShowHelp()

	case cli.CmdVerbose:
		verbose := h.view.ToggleVerbose()
		h.view.ShowMessage(fmt.Sprintf("Verbose mode: %t", verbose))

	case cli.CmdColor:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: color <off|brown|green|gray>")
			return true
		}
		theme := cli.ColorTheme(cmd.Args[0])
		if err := h.view.SetTheme(theme); err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("Color theme set to: %s", theme))
		if h.gameID != "" {
			h.showBoard()
		}

	default:
		if h.gameID == "" {
			h.view.ShowMessage("No active game. Use 'new' or 'resume <FEN>'.")
			return true
		}
		h.handleGameCommand(cmd)
	}

	return true
}

// handleGameCommand covers commands that need a running game
func (h *CLIHandler) handleGameCommand(cmd *cli.Command) {
	switch cmd.Type {
	case cli.CmdMove:
		data, err := h.execute(processor.NewMakeMoveCommand(h.gameID, core.MoveRequest{Notation: cmd.Args[0]}))
		if err != nil {
			h.view.ShowError(fmt.Errorf("invalid move: %v", err))
			return
		}
		g := data.(core.GameResponse)
		if g.LastMove != nil {
			h.view.ShowMove(*g.LastMove)
		}
		h.view.DisplayBoard(g.Board)
		h.announce(g)

	case cli.CmdUndo:
		count := 1
		if len(cmd.Args) > 0 {
			n, err := strconv.Atoi(cmd.Args[0])
			if err != nil || n < 1 {
				h.view.ShowMessage("Invalid undo count. Usage: undo [count]")
				return
			}
			count = n
		}
		data, err := h.execute(processor.NewUndoMoveCommand(h.gameID, core.UndoRequest{Count: count}))
		if err != nil {
			h.view.ShowError(err)
			return
		}
		if count == 1 {
			h.view.ShowMessage("Move undone")
		} else {
			h.view.ShowMessage(fmt.Sprintf("%d moves undone", count))
		}
		h.view.DisplayBoard(data.(core.GameResponse).Board)

	case cli.CmdLegal:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: legal <square>")
			return
		}
		data, err := h.execute(processor.NewLegalMovesCommand(h.gameID, cmd.Args[0]))
		if err != nil {
			h.view.ShowError(err)
			return
		}
		h.view.ShowLegalMoves(data.(core.LegalMovesResponse))

	case cli.CmdResign:
		g, err := h.current()
		if err != nil {
			h.view.ShowError(err)
			return
		}
		data, err := h.execute(processor.NewResignCommand(h.gameID, core.ResignRequest{Color: g.Turn}))
		if err != nil {
			h.view.ShowError(err)
			return
		}
		h.announce(data.(core.GameResponse))

	case cli.CmdDraw:
		h.handleDraw(cmd.Args)

	case cli.CmdHistory:
		g, err := h.current()
		if err != nil {
			h.view.ShowError(err)
			return
		}
		h.view.ShowGameHistory(g)

	case cli.CmdFEN:
		g, err := h.current()
		if err != nil {
			h.view.ShowError(err)
			return
		}
		h.view.ShowMessage(g.FEN)
	}
}

// handleDraw acts for the side to move, or for the side answering a pending offer
func (h *CLIHandler) handleDraw(args []string) {
	if len(args) < 1 {
		h.view.ShowMessage("Usage: draw <offer|accept|decline|claim>")
		return
	}
	g, err := h.current()
	if err != nil {
		h.view.ShowError(err)
		return
	}

	action := args[0]
	color := g.Turn
	if action == "accept" || action == "decline" {
		if offeredBy, err := core.ParseColor(g.DrawOffer); err == nil && offeredBy != 0 {
			color = core.OppositeColor(offeredBy).String()
		}
	}

	data, err := h.execute(processor.NewDrawCommand(h.gameID, core.DrawRequest{Color: color, Action: action}))
	if err != nil {
		h.view.ShowError(err)
		return
	}
	after := data.(core.GameResponse)
	switch {
	case after.DrawOffer != "":
		h.view.ShowMessage(fmt.Sprintf("Draw offered by %s. The other side may 'draw accept' or 'draw decline'.", after.DrawOffer))
	case action == "decline":
		h.view.ShowMessage("Draw offer declined")
	}
	h.announce(after)
}

// announce reports check or the end of the game
func (h *CLIHandler) announce(g core.GameResponse) {
	switch {
	case core.IsTerminalState(g.State):
		h.view.ShowGameOver(g)
	case g.State == core.StateCheck.String():
		h.view.ShowMessage("Check!")
	}
	if g.CanClaimDraw && !core.IsTerminalState(g.State) {
		h.view.ShowMessage("A draw may be claimed with 'draw claim'.")
	}
}

func (h *CLIHandler) showBoard() {
	g, err := h.current()
	if err != nil {
		h.view.ShowError(err)
		return
	}
	h.view.DisplayBoard(g.Board)
}

// handleNewGame starts a game, asking for optional player names
func (h *CLIHandler) handleNewGame(fen string) {
	white := h.view.ReadLine("White player name (optional): ")
	black := h.view.ReadLine("Black player name (optional): ")

	data, err := h.execute(processor.NewCreateGameCommand(core.CreateGameRequest{
		White: core.PlayerConfig{Name: white},
		Black: core.PlayerConfig{Name: black},
		FEN:   fen,
	}))
	if err != nil {
		h.view.ShowError(fmt.Errorf("could not start the game: %v", err))
		return
	}

	// The previous game is discarded
	if h.gameID != "" {
		h.proc.Execute(processor.NewDeleteGameCommand(h.gameID))
	}

	g := data.(core.GameResponse)
	h.gameID = g.GameID
	h.view.ShowMessage("Game started.")
	h.view.DisplayBoard(g.Board)
	h.announce(g)
}
