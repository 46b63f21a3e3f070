package commands

import (
	"fmt"
	"net/url"

	"chessarena/internal/client/display"
	"chessarena/internal/client/session"
)

func (r *Registry) registerUtilCommands() {
	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Check server health",
		Usage:       "health",
		Handler:     r.healthHandler,
	})

	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Show or set the API base URL",
		Usage:       "url [base-url]",
		Handler:     r.urlHandler,
	})
}

func (r *Registry) healthHandler(s *session.Session, args []string) error {
	resp, err := s.Client.Health()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%s | games: %d | storage: %s\n",
		display.Paint(s.Color, display.Green, resp.Status), resp.Games, resp.Storage)
	return nil
}

func (r *Registry) urlHandler(s *session.Session, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "API: %s\n", s.APIBaseURL)
		return nil
	}

	u, err := url.Parse(args[0])
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL: %s", args[0])
	}
	s.SetAPIBaseURL(args[0])
	fmt.Fprintf(r.out, "API: %s\n", s.APIBaseURL)
	return nil
}
