package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/bingoroom/internal/api/apierr"
	"github.com/mcoot/bingoroom/internal/api/request"
	"github.com/mcoot/bingoroom/internal/api/response"
	"github.com/mcoot/bingoroom/internal/model"
	"github.com/mcoot/bingoroom/internal/services/results"
	"github.com/mcoot/bingoroom/internal/session"
)

// Client is an HTTP client for the API
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

// Ensure Client can drive a session against a remote server
var _ session.Backend = (*Client)(nil)

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// No timeout for event streams
		streamClient: &http.Client{},
	}
}

// APIError represents an error response from the API. It unwraps to the
// model error the server mapped it from, so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Unwrap returns the model error for the code, if any
func (e *APIError) Unwrap() error {
	if err := apierr.FromCode(e.Code); err != nil {
		return err
	}
	if e.Status >= http.StatusInternalServerError {
		return model.ErrTransient
	}
	return nil
}

// Do performs an HTTP request
func (c *Client) Do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %w", model.ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", model.ErrTransient, err)
	}

	// Check for error responses
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, respBody)
	}

	// Parse successful response
	if result != nil && len(respBody) > 0 {
		if raw, ok := result.(*[]byte); ok {
			*raw = respBody
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

func decodeError(status int, body []byte) error {
	var errResp apierr.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
		return &APIError{Status: status, Code: errResp.Error.Code, Message: errResp.Error.Message}
	}
	return &APIError{Status: status, Code: fmt.Sprintf("HTTP_%d", status), Message: strings.TrimSpace(string(body))}
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.Do(ctx, http.MethodGet, path, nil, result)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.Do(ctx, http.MethodPost, path, body, result)
}

func roomPath(code model.RoomCode, parts ...string) string {
	return "/api/v1/rooms/" + url.PathEscape(string(code)) + strings.Join(parts, "")
}

// Health checks the server is up
func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	var result HealthResult
	err := c.Get(ctx, "/api/v1/health", &result)
	return result, err
}

// CreateRoom creates a room with a generated code
func (c *Client) CreateRoom(ctx context.Context) (response.Room, error) {
	var room response.Room
	err := c.Post(ctx, "/api/v1/rooms", nil, &room)
	return room, err
}

// Room fetches a room as the API renders it
func (c *Client) Room(ctx context.Context, code model.RoomCode) (response.Room, error) {
	var room response.Room
	err := c.Get(ctx, roomPath(code), &room)
	return room, err
}

// Roster fetches the labelled roster
func (c *Client) Roster(ctx context.Context, code model.RoomCode) (response.Roster, error) {
	var roster response.Roster
	err := c.Get(ctx, roomPath(code, "/players"), &roster)
	return roster, err
}

// Board fetches the leaderboard as the API renders it
func (c *Client) Board(ctx context.Context, code model.RoomCode) (response.Leaderboard, error) {
	var board response.Leaderboard
	err := c.Get(ctx, roomPath(code, "/results"), &board)
	return board, err
}

// QR fetches the room's share QR code as PNG bytes
func (c *Client) QR(ctx context.Context, code model.RoomCode) ([]byte, error) {
	var png []byte
	err := c.Get(ctx, roomPath(code, "/qr.png"), &png)
	return png, err
}

// GetRoom implements session.Backend
func (c *Client) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	room, err := c.Room(ctx, code)
	if err != nil {
		return nil, err
	}
	return room.ToModel(), nil
}

// Join implements session.Backend
func (c *Client) Join(ctx context.Context, code model.RoomCode, name string) (*model.Player, error) {
	var player response.Player
	if err := c.Post(ctx, roomPath(code, "/players"), request.JoinRoomRequest{Name: name}, &player); err != nil {
		return nil, err
	}
	return player.ToModel(code), nil
}

// ClaimHost implements session.Backend
func (c *Client) ClaimHost(ctx context.Context, code model.RoomCode, name string) (*model.HostClaim, error) {
	var claim response.HostClaim
	if err := c.Post(ctx, roomPath(code, "/host"), request.ClaimHostRequest{Name: name}, &claim); err != nil {
		return nil, err
	}
	return &model.HostClaim{Started: claim.Started, IsHost: claim.IsHost, HostName: claim.HostName}, nil
}

// Start implements session.Backend
func (c *Client) Start(ctx context.Context, code model.RoomCode, name string) error {
	return c.Post(ctx, roomPath(code, "/start"), request.StartRoomRequest{PlayerName: name}, nil)
}

// ListPlayers implements session.Backend
func (c *Client) ListPlayers(ctx context.Context, code model.RoomCode) ([]*model.Player, error) {
	roster, err := c.Roster(ctx, code)
	if err != nil {
		return nil, err
	}
	players := make([]*model.Player, len(roster.Players))
	for i, p := range roster.Players {
		players[i] = p.ToModel(code)
	}
	return players, nil
}

// SubmitResult implements session.Backend
func (c *Client) SubmitResult(ctx context.Context, result *model.Result) (*model.Result, error) {
	var created response.Result
	err := c.Post(ctx, roomPath(result.RoomCode, "/results"), request.SubmitResultRequest{
		PlayerName: result.PlayerName,
		Score:      result.Score,
		TotalTime:  result.TotalTimeSeconds,
		BestStreak: result.BestStreak,
	}, &created)
	if err != nil {
		return nil, err
	}
	return created.ToModel(result.RoomCode), nil
}

// Leaderboard implements session.Backend
func (c *Client) Leaderboard(ctx context.Context, code model.RoomCode) (*results.Leaderboard, error) {
	board, err := c.Board(ctx, code)
	if err != nil {
		return nil, err
	}
	return board.ToModel(code), nil
}
