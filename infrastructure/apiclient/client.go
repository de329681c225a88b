package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"keygate/domain/dto"
)

// ErrNetwork request ไปไม่ถึง server หรือไม่ได้ response กลับมา
var ErrNetwork = errors.New("network error")

// StatusError server ตอบกลับด้วย status ที่ไม่ใช่ 2xx
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, e.Message)
}

// Client เรียก API ของ key gate server (token / checkout)
type Client struct {
	baseURL    string
	videoID    string
	httpClient *http.Client
	logger     *slog.Logger
}

type Config struct {
	BaseURL string // http://localhost:3000
	VideoID string // ว่าง = video default ของ server
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		videoID: cfg.VideoID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: slog.Default().With("component", "api_client"),
	}
}

// envelope รูปแบบ error ของ server
type envelope struct {
	Success bool `json:"success"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// FetchPlaybackToken GET /token
func (c *Client) FetchPlaybackToken(ctx context.Context) (*dto.PlaybackTokenResponse, error) {
	endpoint := c.baseURL + "/token"
	if c.videoID != "" {
		endpoint += "?video=" + url.QueryEscape(c.videoID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	var out dto.PlaybackTokenResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" || out.Playback.PlaylistURL == "" {
		return nil, errors.New("token response is missing token or playlist url")
	}

	c.logger.DebugContext(ctx, "Playback token fetched",
		"video", out.Playback.VideoID,
		"expires_at", time.Unix(out.ExpiresAt, 0),
	)
	return &out, nil
}

// CreateCheckoutSession POST /session
func (c *Client) CreateCheckoutSession(ctx context.Context, in *dto.CreateCheckoutSessionRequest) (*dto.CreateCheckoutSessionResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out dto.CreateCheckoutSessionResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Checkout session created", "session_id", out.SessionID)
	return &out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return req.Context().Err()
		}
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Error != nil {
			statusErr.Message = env.Error.Message
		}
		return statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
