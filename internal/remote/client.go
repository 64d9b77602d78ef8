package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"magnate/internal/persist"
)

// Client talks to the magnate-sync service. Every call carries a bounded
// timeout so a hung network call degrades to local-only persistence
// instead of stalling the snapshot cadence.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

type RegisterResult struct {
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
}

type saveEnvelope struct {
	Payload     string          `json:"payload"`
	Summary     persist.Summary `json:"summary"`
	LastUpdated time.Time       `json:"last_updated,omitempty"`
}

type LeaderboardRow struct {
	Rank           int64  `json:"rank"`
	Handle         string `json:"handle"`
	Level          int    `json:"level"`
	NetWorthMicros int64  `json:"net_worth_micros"`
}

// Register creates a player identity and returns its device token.
func (c *Client) Register(ctx context.Context, handle string) (RegisterResult, error) {
	var out RegisterResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/players", map[string]any{
		"handle": handle,
	}, &out)
	return out, err
}

// Push implements persist.RemoteStore. Connection failures and server
// errors are transient: the caller logs and moves on.
func (c *Client) Push(ctx context.Context, payload []byte, summary persist.Summary) (persist.PushStatus, error) {
	in := saveEnvelope{
		Payload: base64.StdEncoding.EncodeToString(payload),
		Summary: summary,
	}
	if err := c.jsonRequest(ctx, http.MethodPut, "/v1/saves", in, nil); err != nil {
		return persist.PushTransientFailure, err
	}
	return persist.PushOK, nil
}

// Fetch implements persist.RemoteStore.
func (c *Client) Fetch(ctx context.Context) ([]byte, time.Time, bool, error) {
	var out saveEnvelope
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/saves", nil, &out)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}
	payload, err := base64.StdEncoding.DecodeString(out.Payload)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode remote payload: %w", err)
	}
	return payload, out.LastUpdated, true, nil
}

// Leaderboard fetches the top players by stored net worth.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var out struct {
		Rows []LeaderboardRow `json:"rows"`
	}
	path := "/v1/leaderboard"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sync api status %d: %s", e.Code, e.Body)
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
