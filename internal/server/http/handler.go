package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"chessarena/internal/server/core"
	"chessarena/internal/server/processor"
	"chessarena/internal/server/service"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, devMode bool) *fiber.App {
	// Create handler
	h := NewHTTPHandler(proc, svc)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	// API v1 routes
	api := app.Group("/api/v1")

	// Spectator streams are long lived, registered ahead of the rate limiter
	api.Get("/games/:gameId/ws", wsUpgrade, websocket.New(h.StreamGame))

	// Game routes with standard rate limiting
	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	// Content-Type validation for POST requests
	api.Use(contentTypeValidator)

	// Middleware validation for sanitization
	api.Use(validationMiddleware)

	api.Post("/games", h.CreateGame)
	api.Get("/games/:gameId", gameIDRequired, h.GetGame)
	api.Delete("/games/:gameId", gameIDRequired, h.DeleteGame)
	api.Post("/games/:gameId/moves", gameIDRequired, h.MakeMove)
	api.Get("/games/:gameId/legal", gameIDRequired, h.LegalMoves)
	api.Post("/games/:gameId/undo", gameIDRequired, h.UndoMove)
	api.Post("/games/:gameId/resign", gameIDRequired, h.Resign)
	api.Post("/games/:gameId/draw", gameIDRequired, h.Draw)
	api.Get("/games/:gameId/board", gameIDRequired, h.GetBoard)

	return app
}

// contentTypeValidator ensures POST requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if contentType != "application/json" && contentType != "" {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// gameIDRequired rejects routes whose :gameId is not a UUID
func gameIDRequired(c *fiber.Ctx) error {
	if !isValidUUID(c.Params("gameId")) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid game ID format",
			Code:    core.ErrInvalidRequest,
			Details: "game ID must be a valid UUID",
		})
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		// Map HTTP status to error codes
		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest, fiber.StatusUpgradeRequired:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps processor error codes to HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrGameNotFound:
		return fiber.StatusNotFound
	case core.ErrNotYourTurn:
		return fiber.StatusForbidden
	case core.ErrGameOver:
		return fiber.StatusConflict
	case core.ErrResourceLimit:
		return fiber.StatusServiceUnavailable
	case core.ErrInternalError, core.ErrReplayCorruption:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// respond writes a processor response with the given success status
func respond(c *fiber.Ctx, resp processor.ProcessorResponse, status int) error {
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	if resp.Data == nil {
		return c.SendStatus(status)
	}
	return c.Status(status).JSON(resp.Data)
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"games":   len(h.svc.GameIDs()),
		"storage": h.svc.GetStorageHealth(),
	})
}

// CreateGame starts a game from the standard position or a supplied FEN
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateGameRequest](c)
	if err != nil {
		return err
	}
	resp := h.proc.Execute(processor.NewCreateGameCommand(req))
	return respond(c, resp, fiber.StatusCreated)
}

// GetGame retrieves current game state. With wait=true the request is held until the
// game's revision moves past the supplied one, the wait times out or the client leaves.
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	gameID := c.Params("gameId")

	if c.Query("wait", "false") != "true" {
		return respond(c, h.proc.Execute(processor.NewGetGameCommand(gameID)), fiber.StatusOK)
	}

	revision, err := strconv.Atoi(c.Query("revision", "-1"))
	if err != nil {
		revision = -1
	}

	ctx := c.Context()
	notify := h.svc.RegisterWait(ctx, gameID, revision)

	// Wait for notification, timeout, or client disconnect
	select {
	case <-notify:
		// Game might have been deleted
		return respond(c, h.proc.Execute(processor.NewGetGameCommand(gameID)), fiber.StatusOK)
	case <-ctx.Done():
		// Client disconnected
		return nil
	}
}

// MakeMove submits a coordinate or notation move
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	req, err := validatedBody[core.MoveRequest](c)
	if err != nil {
		return err
	}
	resp := h.proc.Execute(processor.NewMakeMoveCommand(c.Params("gameId"), req))
	return respond(c, resp, fiber.StatusOK)
}

// LegalMoves lists legal destinations from the square in ?from=
func (h *HTTPHandler) LegalMoves(c *fiber.Ctx) error {
	from := c.Query("from")
	if from == "" {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error: "from square is required",
			Code:  core.ErrInvalidRequest,
		})
	}
	resp := h.proc.Execute(processor.NewLegalMovesCommand(c.Params("gameId"), from))
	return respond(c, resp, fiber.StatusOK)
}

// UndoMove undoes one or more moves
func (h *HTTPHandler) UndoMove(c *fiber.Ctx) error {
	req, err := validatedBody[core.UndoRequest](c)
	if err != nil {
		return err
	}
	resp := h.proc.Execute(processor.NewUndoMoveCommand(c.Params("gameId"), req))
	return respond(c, resp, fiber.StatusOK)
}

func (h *HTTPHandler) Resign(c *fiber.Ctx) error {
	req, err := validatedBody[core.ResignRequest](c)
	if err != nil {
		return err
	}
	resp := h.proc.Execute(processor.NewResignCommand(c.Params("gameId"), req))
	return respond(c, resp, fiber.StatusOK)
}

// Draw handles offer, accept, decline and claim
func (h *HTTPHandler) Draw(c *fiber.Ctx) error {
	req, err := validatedBody[core.DrawRequest](c)
	if err != nil {
		return err
	}
	resp := h.proc.Execute(processor.NewDrawCommand(c.Params("gameId"), req))
	return respond(c, resp, fiber.StatusOK)
}

// DeleteGame ends and cleans up a game
func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	resp := h.proc.Execute(processor.NewDeleteGameCommand(c.Params("gameId")))
	return respond(c, resp, fiber.StatusNoContent)
}

// GetBoard returns ASCII representation of the board
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	resp := h.proc.Execute(processor.NewGetBoardCommand(c.Params("gameId")))
	return respond(c, resp, fiber.StatusOK)
}
