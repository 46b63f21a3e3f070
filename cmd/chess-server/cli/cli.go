package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"chessarena/internal/server/board"
	"chessarena/internal/server/core"
	"chessarena/internal/server/processor"
	"chessarena/internal/server/storage"
)

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

// Run is the entry point for the CLI mini-app
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, replay")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "delete":
		return runDelete(args[1:], os.Stdin)
	case "query":
		return runQuery(args[1:], os.Stdout)
	case "replay":
		return runReplay(args[1:], os.Stdout)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

// storeFlags registers the flags every subcommand shares
func storeFlags(fs *flag.FlagSet) (path, driver *string) {
	path = fs.String("path", "", "Database path (required)")
	driver = fs.String("driver", "sqlite", "Storage backend: sqlite or badger")
	return path, driver
}

func openStore(path, driver string) (storage.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	store, err := storage.Open(driver, path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path, driver := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path, *driver)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Printf("Database initialized at: %s\n", *path)
	return nil
}

func runDelete(args []string, in io.Reader) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	path, driver := storeFlags(fs)
	force := fs.Bool("force", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Interactive sessions confirm; scripts must pass -force
	if !*force {
		if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
			return fmt.Errorf("refusing to delete without a terminal; use -force")
		}
		fmt.Printf("Delete all games in %s? Type 'yes' to confirm: ", *path)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			return fmt.Errorf("aborted")
		}
	}

	store, err := openStore(*path, *driver)
	if err != nil {
		return err
	}

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Printf("Database deleted: %s\n", *path)
	return nil
}

func runQuery(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	path, driver := storeFlags(fs)
	gameID := fs.String("gameId", "", "Game ID to filter (optional, * for all)")
	playerID := fs.String("playerId", "", "Player ID to filter (optional, * for all)")
	moves := fs.Bool("moves", false, "List the move log of each game")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path, *driver)
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.QueryGames(*gameID, *playerID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return nil
	}

	// Print results in tabular format
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tWhite Player\tBlack Player\tState\tStart Time")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, g := range games {
		state := g.State
		if g.Winner != "" {
			state += " (" + g.Winner + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			short(g.GameID)+"...",
			playerLabel(g.WhitePlayerID, g.WhiteName),
			playerLabel(g.BlackPlayerID, g.BlackName),
			state,
			g.StartTimeUTC.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	if *moves {
		for _, g := range games {
			rows, err := store.LoadMoves(g.GameID)
			if err != nil {
				return fmt.Errorf("load moves for %s: %w", g.GameID, err)
			}
			fmt.Fprintf(out, "\n%s: %s\n", g.GameID, formatMoves(g.InitialFEN, rows))
		}
	}

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
	return nil
}

// runReplay rebuilds every stored game from its move log and reports the ones
// that no longer replay
func runReplay(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	path, driver := storeFlags(fs)
	workers := fs.Int("workers", 4, "Replay workers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path, *driver)
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.QueryGames("", "")
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	queue := processor.NewReplayQueue(store, *workers)
	defer queue.Shutdown(5 * time.Second)

	results := queue.ReplayAll(context.Background(), games)
	sort.Slice(results, func(i, j int) bool { return results[i].GameID < results[j].GameID })

	ok, bad := colorGreen, colorRed
	if f, isFile := out.(*os.File); !isFile || !term.IsTerminal(int(f.Fd())) {
		ok, bad = "", ""
	}
	reset := ""
	if ok != "" {
		reset = colorReset
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(out, "%sFAIL%s %s: %v\n", bad, reset, r.GameID, r.Error)
			continue
		}
		fmt.Fprintf(out, "%sOK%s   %s: %d moves, %s\n", ok, reset, r.GameID, r.Moves, r.Game.State())
	}

	fmt.Fprintf(out, "\nReplayed %d game(s), %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d game(s) failed to replay", failed)
	}
	return nil
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func playerLabel(id, name string) string {
	if name == "" {
		return short(id)
	}
	return fmt.Sprintf("%s (%s)", name, short(id))
}

// formatMoves renders a move log as numbered move pairs, numbered from the game's
// starting position
func formatMoves(initialFEN string, rows []storage.MoveRecord) string {
	var sb strings.Builder
	for i, r := range rows {
		num, mover := board.MoveNumber(initialFEN, r.MoveNumber)
		if mover == core.ColorWhite || i == 0 {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(fmt.Sprintf("%d.", num))
			if mover == core.ColorBlack {
				sb.WriteString("..")
			}
		}
		sb.WriteByte(' ')
		sb.WriteString(r.Notation)
	}
	return sb.String()
}
