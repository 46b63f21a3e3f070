package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"chessarena/internal/client/display"
	"chessarena/internal/client/session"
)

// ErrExit is returned by Execute when the user asks to leave
var ErrExit = errors.New("exit")

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(*session.Session, []string) error
}

// Registry manages command registration and execution
type Registry struct {
	session  *session.Session
	out      io.Writer
	commands map[string]*Command
}

func NewRegistry(s *session.Session, out io.Writer) *Registry {
	r := &Registry{
		session:  s,
		out:      out,
		commands: make(map[string]*Command),
	}

	r.registerGameCommands()
	r.registerUtilCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})

	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Handler: func(*session.Session, []string) error {
			return ErrExit
		},
	})

	return r
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

// Execute runs one input line; only ErrExit is returned, other failures are printed
func (r *Registry) Execute(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd, exists := r.commands[parts[0]]
	if !exists {
		r.errorf("Unknown command: %s", parts[0])
		fmt.Fprintln(r.out, "Type 'help' for available commands")
		return nil
	}

	r.session.Client.SetVerbose(r.session.Verbose)

	err := cmd.Handler(r.session, parts[1:])
	if errors.Is(err, ErrExit) {
		return err
	}
	if err != nil {
		r.errorf("Error: %s", err.Error())
	}
	return nil
}

func (r *Registry) errorf(format string, args ...any) {
	fmt.Fprintln(r.out, display.Paint(r.session.Color, display.Red, fmt.Sprintf(format, args...)))
}

func (r *Registry) helpHandler(s *session.Session, args []string) error {
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(r.out, "\n%s - %s\n", display.Paint(s.Color, display.Cyan, cmd.Name), cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(r.out, "Short form: %s\n", display.Paint(s.Color, display.Cyan, cmd.ShortName))
		}
		fmt.Fprintf(r.out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	// Aliases share the same *Command; list each once
	seen := make(map[*Command]bool)
	var cmds []*Command
	for _, cmd := range r.commands {
		if !seen[cmd] {
			seen[cmd] = true
			cmds = append(cmds, cmd)
		}
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	fmt.Fprintf(r.out, "\n%s\n", display.Paint(s.Color, display.Cyan, "Available Commands:"))
	for _, cmd := range cmds {
		short := "   "
		if cmd.ShortName != "" {
			short = "[" + cmd.ShortName + "]"
		}
		fmt.Fprintf(r.out, "  %s %-8s %s\n", short, cmd.Name, cmd.Description)
	}
	fmt.Fprintln(r.out, "\nType 'help <command>' for detailed usage")
	fmt.Fprintln(r.out, "Add '-v' to any command for verbose output")
	return nil
}
