package http

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"chessarena/internal/server/core"
)

// wsUpgrade admits only websocket handshakes for a well-formed game ID
func wsUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if !isValidUUID(c.Params("gameId")) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid game ID format")
	}
	return c.Next()
}

// StreamGame pushes the game state to a spectator on connect and after every change.
// The stream ends when the game is deleted, the server shuts down or the client leaves.
func (h *HTTPHandler) StreamGame(conn *websocket.Conn) {
	gameID := conn.Params("gameId")
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Spectators only listen; a read error means the client went away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	revision := -1
	for {
		snap, err := h.proc.Snapshot(gameID)
		if err != nil {
			conn.WriteJSON(core.ErrorResponse{
				Error: err.Error(),
				Code:  core.ErrGameNotFound,
			})
			return
		}
		if snap.Revision != revision {
			if err := conn.WriteJSON(snap); err != nil {
				log.Printf("Spectator stream for game %s closed: %v", gameID, err)
				return
			}
			revision = snap.Revision
		}

		select {
		case <-h.svc.RegisterWait(ctx, gameID, revision):
		case <-ctx.Done():
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-h.svc.Closing():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		default:
		}
	}
}
