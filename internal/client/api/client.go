package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chessarena/internal/client/display"
	"chessarena/internal/server/core"
)

// APIError is a non-2xx reply decoded from the server's error body
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// HealthResponse mirrors the /health payload
type HealthResponse struct {
	Status  string `json:"status"`
	Time    int64  `json:"time"`
	Games   int    `json:"games"`
	Storage string `json:"storage"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Verbose    bool
	Color      bool
	Log        io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Long polls are held server side for up to the write timeout
			Timeout: 40 * time.Second,
		},
		Log: io.Discard,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(u string) {
	c.BaseURL = strings.TrimRight(u, "/")
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	var bodyReader io.Reader
	var bodyData []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyData = data
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Verbose {
		fmt.Fprintf(c.Log, "%s\n", display.Paint(c.Color, display.Blue, "[API] "+method+" "+path))
		if len(bodyData) > 0 {
			fmt.Fprintf(c.Log, "%s\n", display.Paint(c.Color, display.Blue, string(bodyData)))
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if c.Verbose {
		statusColor := display.Green
		if resp.StatusCode >= 400 {
			statusColor = display.Red
		}
		status := fmt.Sprintf("[%d %s]", resp.StatusCode, http.StatusText(resp.StatusCode))
		fmt.Fprintln(c.Log, display.Paint(c.Color, statusColor, status))
		if len(respBody) > 0 {
			var pretty any
			if json.Unmarshal(respBody, &pretty) == nil {
				display.PrettyPrintJSON(c.Log, pretty)
			} else {
				fmt.Fprintln(c.Log, string(respBody))
			}
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errResp core.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
			apiErr.Details = errResp.Details
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("response parse error: %w", err)
		}
	}
	return nil
}

// CodeOf returns the server error code carried by err, or ""
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// API Methods

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

func (c *Client) CreateGame(req *core.CreateGameRequest) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games", req, &resp)
	return &resp, err
}

func (c *Client) GetGame(gameID string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodGet, "/api/v1/games/"+url.PathEscape(gameID), nil, &resp)
	return &resp, err
}

// WaitGame long-polls until the game's revision moves past revision
func (c *Client) WaitGame(gameID string, revision int) (*core.GameResponse, error) {
	var resp core.GameResponse
	path := fmt.Sprintf("/api/v1/games/%s?wait=true&revision=%d", url.PathEscape(gameID), revision)
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) DeleteGame(gameID string) error {
	return c.doRequest(http.MethodDelete, "/api/v1/games/"+url.PathEscape(gameID), nil, nil)
}

func (c *Client) MakeMove(gameID string, req *core.MoveRequest) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+url.PathEscape(gameID)+"/moves", req, &resp)
	return &resp, err
}

func (c *Client) LegalMoves(gameID, from string) (*core.LegalMovesResponse, error) {
	var resp core.LegalMovesResponse
	path := "/api/v1/games/" + url.PathEscape(gameID) + "/legal?from=" + url.QueryEscape(from)
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) UndoMoves(gameID string, count int) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+url.PathEscape(gameID)+"/undo", &core.UndoRequest{Count: count}, &resp)
	return &resp, err
}

func (c *Client) Resign(gameID, color string) (*core.GameResponse, error) {
	var resp core.GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+url.PathEscape(gameID)+"/resign", &core.ResignRequest{Color: color}, &resp)
	return &resp, err
}

func (c *Client) Draw(gameID, color, action string) (*core.GameResponse, error) {
	var resp core.GameResponse
	req := &core.DrawRequest{Color: color, Action: action}
	err := c.doRequest(http.MethodPost, "/api/v1/games/"+url.PathEscape(gameID)+"/draw", req, &resp)
	return &resp, err
}

func (c *Client) GetBoard(gameID string) (*core.BoardResponse, error) {
	var resp core.BoardResponse
	err := c.doRequest(http.MethodGet, "/api/v1/games/"+url.PathEscape(gameID)+"/board", nil, &resp)
	return &resp, err
}
