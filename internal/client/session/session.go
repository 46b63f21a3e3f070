package session

import (
	"chessarena/internal/client/api"
	"chessarena/internal/server/core"
)

// Session is the client-side view of the game being followed
type Session struct {
	APIBaseURL  string
	Client      *api.Client
	CurrentGame string
	Verbose     bool
	Color       bool

	state *core.GameResponse
}

func New(baseURL string) *Session {
	return &Session{
		APIBaseURL: baseURL,
		Client:     api.New(baseURL),
	}
}

// SetAPIBaseURL retargets the session and forgets the current game
func (s *Session) SetAPIBaseURL(u string) {
	s.APIBaseURL = u
	s.Client.SetBaseURL(u)
	s.SetCurrentGame("")
}

func (s *Session) SetCurrentGame(gameID string) {
	if gameID != s.CurrentGame {
		s.state = nil
	}
	s.CurrentGame = gameID
}

// Track records the latest game snapshot seen from the server
func (s *Session) Track(resp *core.GameResponse) {
	if resp == nil || resp.GameID == "" {
		return
	}
	s.CurrentGame = resp.GameID
	s.state = resp
}

func (s *Session) State() *core.GameResponse {
	return s.state
}

// Revision is the last revision seen, -1 before any snapshot
func (s *Session) Revision() int {
	if s.state == nil {
		return -1
	}
	return s.state.Revision
}
