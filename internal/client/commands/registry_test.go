package commands

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"chessarena/internal/client/session"
	"chessarena/internal/server/core"
	server "chessarena/internal/server/http"
	"chessarena/internal/server/processor"
	"chessarena/internal/server/service"
)

type appTransport struct{ app *fiber.App }

func (t appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

func newSession(t *testing.T, app *fiber.App) *session.Session {
	t.Helper()
	s := session.New("http://chess.test")
	s.Client.HTTPClient.Transport = appTransport{app}
	return s
}

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	svc := service.New(nil)
	proc := processor.New(svc, 0)
	t.Cleanup(func() {
		proc.Close()
		svc.Shutdown(time.Second)
	})
	return server.NewFiberApp(proc, svc, true)
}

// run feeds lines to a registry and returns everything it printed
func run(t *testing.T, r *Registry, out *bytes.Buffer, lines ...string) string {
	t.Helper()
	out.Reset()
	for _, line := range lines {
		if err := r.Execute(line); err != nil {
			t.Fatalf("Execute(%q) = %v", line, err)
		}
	}
	return out.String()
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestGameSession(t *testing.T) {
	app := newApp(t)
	s := newSession(t, app)
	var out bytes.Buffer
	r := NewRegistry(s, &out)

	got := run(t, r, &out, "new alice bob")
	assertContains(t, got, "Game created: ", "Turn: White | State: active | Moves: 0")
	if s.CurrentGame == "" {
		t.Fatal("new did not set the current game")
	}

	got = run(t, r, &out, "move e2e4", "m e5")
	assertContains(t, got, "Played e4", "Played e5", "Moves: 2")

	got = run(t, r, &out, "legal g1", "legal e4")
	assertContains(t, got, "Legal from g1: ", "Nf3", "No legal moves from e4")

	got = run(t, r, &out, "undo 2")
	assertContains(t, got, "Undid 2 move(s)", "Moves: 0")

	got = run(t, r, &out, "draw offer", "draw decline")
	assertContains(t, got, "Draw offered by w", "Draw offer declined")

	got = run(t, r, &out, "resign")
	assertContains(t, got, "State: resigned", "Winner: b")

	got = run(t, r, &out, "move d2d4")
	assertContains(t, got, "Error: ", "GAME_OVER")

	got = run(t, r, &out, "show")
	assertContains(t, got, "8 r n b q k b n r  8", "FEN: rnbqkbnr/")

	// A second viewer with no snapshot yet gets the game back immediately
	viewer := newSession(t, app)
	viewer.SetCurrentGame(s.CurrentGame)
	var viewOut bytes.Buffer
	got = run(t, NewRegistry(viewer, &viewOut), &viewOut, "poll")
	assertContains(t, got, "revision -1", "Game updated", "State: resigned")

	id := s.CurrentGame
	got = run(t, r, &out, "delete", "show")
	assertContains(t, got, "Game deleted: "+id, "no current game")
}

func TestCoordinateAndSANMoves(t *testing.T) {
	s := newSession(t, newApp(t))
	var out bytes.Buffer
	r := NewRegistry(s, &out)

	got := run(t, r, &out,
		"load 4k3/1P6/8/8/8/8/8/4K3 w - - 0 1",
		"move b7b8q",
	)
	assertContains(t, got, "Game created: ", "Played b8=Q+")

	got = run(t, r, &out, "undo", "move b8=N")
	assertContains(t, got, "Undid 1 move(s)", "Played b8=N")
}

func TestRegistryErrors(t *testing.T) {
	s := newSession(t, newApp(t))
	var out bytes.Buffer
	r := NewRegistry(s, &out)

	got := run(t, r, &out, "frob", "move e4", "undo x", "url ftp://nowhere", "help move")
	assertContains(t, got,
		"Unknown command: frob",
		"no current game",
		"invalid URL: ftp://nowhere",
		"Usage: move <e2e4|Nf3|O-O>",
	)

	if err := r.Execute("exit"); !errors.Is(err, ErrExit) {
		t.Errorf("exit = %v, want ErrExit", err)
	}
}

func TestHistoryNumbering(t *testing.T) {
	moves := []core.MoveInfo{
		{Ply: 1, PlayerColor: "b", Notation: "Kd7"},
		{Ply: 2, PlayerColor: "w", Notation: "Kd2"},
	}
	if got, want := history("4k3/8/8/8/8/8/8/4K3 b - - 0 9", moves), "9... Kd7 10. Kd2"; got != want {
		t.Errorf("history = %q, want %q", got, want)
	}
	if got, want := history("", moves[:0]), ""; got != want {
		t.Errorf("empty history = %q", got)
	}
}
