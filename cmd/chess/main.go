// Package main runs a hot-seat chess game in the terminal.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"chessarena/internal/cli"
	"chessarena/internal/server/processor"
	"chessarena/internal/server/service"
	clitransport "chessarena/internal/transport/cli"
)

func main() {
	theme := flag.String("color", "", "Board color theme: off, brown, green, gray (default brown on a terminal)")
	history := flag.String("history", ".chess_history", "Readline history file (empty disables)")
	flag.Parse()

	var input cli.LineReader
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "> ",
			HistoryFile:     *history,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			fmt.Printf("Failed to start: %v\n", err)
			os.Exit(1)
		}
		defer rl.Close()
		input = rl
	} else {
		input = cli.NewScannerReader(os.Stdin, os.Stdout)
	}

	svc := service.New(nil)
	proc := processor.New(svc, 0)
	defer func() {
		proc.Close()
		svc.Shutdown(time.Second)
	}()

	view := cli.New(input, os.Stdout)
	if *theme == "" && interactive && term.IsTerminal(int(os.Stdout.Fd())) {
		*theme = string(cli.ThemeBrown)
	}
	if *theme != "" {
		if err := view.SetTheme(cli.ColorTheme(*theme)); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}

	handler := clitransport.New(proc, view)

	view.ShowWelcome()
	handler.Run() // All game loop logic is in the handler
}
