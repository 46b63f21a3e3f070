// Package main implements an interactive debugging client for the chess server API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"chessarena/internal/client/commands"
	"chessarena/internal/client/display"
	"chessarena/internal/client/session"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "Chess server base URL")
	noColor := flag.Bool("no-color", false, "Disable ANSI colors")
	flag.Parse()

	s := session.New(*apiURL)
	s.Color = !*noColor && term.IsTerminal(int(os.Stdout.Fd()))
	s.Client.Color = s.Color
	s.Client.Log = os.Stdout

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("chess"),
		HistoryFile:     ".chess_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println(display.Paint(s.Color, display.Cyan, "Chess Debug Client"))
	fmt.Println(display.Paint(s.Color, display.Cyan, "API: "+s.APIBaseURL))
	fmt.Printf("Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s, rl.Stdout())

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Check for verbose flag
		s.Verbose = strings.HasSuffix(line, " -v")
		line = strings.TrimSuffix(line, " -v")

		if errors.Is(registry.Execute(line), commands.ErrExit) {
			break
		}
	}
}

func buildPrompt(s *session.Session) string {
	prompt := "chess"
	if s.CurrentGame != "" {
		id := s.CurrentGame
		if len(id) > 8 {
			id = id[:8]
		}
		prompt += " [" + id + "]"
	}
	if g := s.State(); g != nil {
		prompt += " " + display.ColorForTurn(g.Turn, s.Color) + "/" + g.State
	}
	return display.Prompt(prompt)
}
