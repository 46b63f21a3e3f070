package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
)

type CommandType int

const (
	CmdNone CommandType = iota
	CmdNew
	CmdResume
	CmdMove
	CmdUndo
	CmdLegal
	CmdResign
	CmdDraw
	CmdColor
	CmdVerbose
	CmdHistory
	CmdFEN
	CmdHelp
	CmdQuit
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

type ColorTheme string

const (
	ThemeOff   ColorTheme = "off"
	ThemeBrown ColorTheme = "brown"
	ThemeGreen ColorTheme = "green"
	ThemeGray  ColorTheme = "gray"
)

type themeColors struct {
	lightBg string
	darkBg  string
	white   string
	black   string
	reset   string
}

var themes = map[ColorTheme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg: "\033[48;5;230m", // Beige
		darkBg:  "\033[48;5;94m",  // Brown
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGreen: {
		lightBg: "\033[48;5;157m", // Light green
		darkBg:  "\033[48;5;22m",  // Dark green
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGray: {
		lightBg: "\033[48;5;251m", // Light gray
		darkBg:  "\033[48;5;240m", // Dark gray
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
}

// LineReader is satisfied by *readline.Instance
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// scannerReader reads plain lines, printing the prompt itself
type scannerReader struct {
	scanner *bufio.Scanner
	output  io.Writer
	prompt  string
}

// NewScannerReader adapts a plain reader for non-interactive input
func NewScannerReader(input io.Reader, output io.Writer) LineReader {
	return &scannerReader{scanner: bufio.NewScanner(input), output: output}
}

func (r *scannerReader) SetPrompt(prompt string) { r.prompt = prompt }

func (r *scannerReader) Readline() (string, error) {
	fmt.Fprint(r.output, r.prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

type CLI struct {
	input   LineReader
	output  io.Writer
	theme   ColorTheme
	verbose bool
}

func New(input LineReader, output io.Writer) *CLI {
	return &CLI{
		input:  input,
		output: output,
		theme:  ThemeOff,
	}
}

// GetCommand reads a command synchronously; end of input reads as quit
func (c *CLI) GetCommand(prompt string) (*Command, error) {
	c.input.SetPrompt(prompt)
	line, err := c.input.Readline()
	if err == io.EOF {
		return &Command{Type: CmdQuit}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseCommand(line), nil
}

// ParseCommand maps an input line to a command; unknown words are moves
func ParseCommand(input string) *Command {
	input = strings.TrimSpace(input)
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Type: CmdNone}
	}

	cmd := parts[0]
	args := parts[1:]

	switch cmd {
	case "new":
		return &Command{Type: CmdNew, Args: args}
	case "resume":
		return &Command{Type: CmdResume, Args: args, Raw: input}
	case "undo":
		return &Command{Type: CmdUndo, Args: args}
	case "legal", "moves":
		return &Command{Type: CmdLegal, Args: args}
	case "resign":
		return &Command{Type: CmdResign}
	case "draw":
		return &Command{Type: CmdDraw, Args: args}
	case "color":
		return &Command{Type: CmdColor, Args: args}
	case "verbose":
		return &Command{Type: CmdVerbose}
	case "history":
		return &Command{Type: CmdHistory}
	case "fen":
		return &Command{Type: CmdFEN}
	case "help", "?":
		return &Command{Type: CmdHelp}
	case "quit", "exit":
		return &Command{Type: CmdQuit}
	default:
		// Assume it's a move
		return &Command{Type: CmdMove, Args: []string{cmd}, Raw: input}
	}
}

func (c *CLI) SetTheme(theme ColorTheme) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", theme)
	}
	c.theme = theme
	return nil
}

func (c *CLI) ToggleVerbose() bool {
	c.verbose = !c.verbose
	return c.verbose
}

func (c *CLI) IsVerbose() bool {
	return c.verbose
}

func (c *CLI) ShowMessage(msg string) {
	fmt.Fprintln(c.output, msg)
}

func (c *CLI) ShowError(err error) {
	c.ShowMessage(fmt.Sprintf("Error: %v\n", err))
}

// ReadLine prompts for a single answer
func (c *CLI) ReadLine(prompt string) string {
	c.input.SetPrompt(prompt)
	line, err := c.input.Readline()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// DisplayBoard draws a [rank][file] grid with rank 8 at the top
func (c *CLI) DisplayBoard(grid [8][8]string) {
	theme := themes[c.theme]
	var sb strings.Builder

	sb.WriteString("\n  a b c d e f g h\n")

	for r := 7; r >= 0; r-- {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for f := 0; f < 8; f++ {
			piece := grid[r][f]

			if c.theme == ThemeOff {
				// No colors, just show piece or space
				if piece == "" {
					sb.WriteString("  ")
				} else {
					sb.WriteString(piece + " ")
				}
				continue
			}

			// a1 is a dark square
			bg := theme.lightBg
			if (r+f)%2 == 0 {
				bg = theme.darkBg
			}
			if piece == "" {
				sb.WriteString(fmt.Sprintf("%s  %s", bg, theme.reset))
			} else {
				color := theme.black
				if piece == strings.ToUpper(piece) {
					color = theme.white
				}
				sb.WriteString(fmt.Sprintf("%s%s%s %s", bg, color, piece, theme.reset))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h\n")

	c.ShowMessage(sb.String())
}

func (c *CLI) ShowHelp() {
	help := `Commands:
  new              - Start a new game from the standard position
  resume <FEN>     - Start from a specific board position
  <move>           - Make a move (e.g., e4, Nf3, O-O, exd5, e7e8q)
  legal <square>   - List legal moves from a square
  undo [count]     - Undo last move(s), default 1
  resign           - Resign for the side to move
  draw <action>    - offer | accept | decline | claim
  color <theme>    - Set board color theme (off|brown|green|gray)
  verbose          - Toggle detailed move information
  history          - Show game move history
  fen              - Show the current position as FEN
  quit/exit        - Exit the program
  help/?           - Show this help message`

	c.ShowMessage(help)
}

func (c *CLI) ShowWelcome() {
	c.ShowMessage("Welcome to Chess!")
	c.ShowMessage("Commands: new, resume <FEN>, <move>, undo, legal, draw, resign, history, help/?, quit")
	c.ShowMessage("Example: 'resume 4k3/8/8/8/8/8/8/4K2R w K - 0 1' to start from a puzzle.")
	c.ShowMessage("")
}

// ShowGameHistory prints the log as numbered move pairs
func (c *CLI) ShowGameHistory(g core.GameResponse) {
	c.ShowMessage(fmt.Sprintf("Starting FEN: %s\n", g.InitialFEN))

	var sb strings.Builder
	for i, m := range g.Moves {
		num, mover := board.MoveNumber(g.InitialFEN, m.Ply)
		if mover == core.ColorWhite || i == 0 {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(fmt.Sprintf("%d.", num))
			if mover == core.ColorBlack {
				sb.WriteString(" ...")
			}
		}
		sb.WriteString(" " + m.Notation)
	}
	if sb.Len() > 0 {
		c.ShowMessage(sb.String() + "\n")
	}
	c.ShowMessage(fmt.Sprintf("Current FEN: %s\n", g.FEN))
	c.ShowMessage(fmt.Sprintf("Game state: %s\n", g.State))
}

// ShowMove reports an applied move; verbose mode adds its flags
func (c *CLI) ShowMove(m core.MoveInfo) {
	side := "White"
	if m.PlayerColor == "b" {
		side = "Black"
	}
	if !c.verbose {
		c.ShowMessage(fmt.Sprintf("%s: %s", side, m.Notation))
		return
	}

	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{m.IsCapture, "capture"},
		{m.IsEnPassant, "en passant"},
		{m.IsCastle, "castle"},
		{m.IsPromotion, "promotion to " + m.PromotionPiece},
		{m.IsCheck, "check"},
		{m.IsCheckmate, "checkmate"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	line := fmt.Sprintf("%s: %s (%s %s%s)", side, m.Notation, m.Piece, m.From, m.To)
	if len(flags) > 0 {
		line += " [" + strings.Join(flags, ", ") + "]"
	}
	c.ShowMessage(line)
}

// ShowLegalMoves lists destinations from one square
func (c *CLI) ShowLegalMoves(resp core.LegalMovesResponse) {
	if len(resp.Targets) == 0 {
		c.ShowMessage(fmt.Sprintf("No legal moves from %s", resp.From))
		return
	}
	names := make([]string, len(resp.Targets))
	for i, m := range resp.Targets {
		names[i] = m.Notation
	}
	c.ShowMessage(fmt.Sprintf("Legal from %s: %s", resp.From, strings.Join(names, " ")))
}

// ShowGameOver announces a finished game
func (c *CLI) ShowGameOver(g core.GameResponse) {
	result := g.State
	switch g.Winner {
	case "w":
		result += ", White wins"
	case "b":
		result += ", Black wins"
	}
	c.ShowMessage(fmt.Sprintf("\nGame Over: %s\n", result))
	c.ShowMessage("Undo to continue, or start a new game with 'new' or 'resume'.")
}
