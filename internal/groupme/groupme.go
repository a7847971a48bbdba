// Package groupme implements the outbound GroupMe v3 API client used
// for bot lifecycle and message sending operations.
package groupme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the GroupMe v3 API endpoint.
const DefaultBaseURL = "https://api.groupme.com/v3"

// requestTimeout is the fixed timeout applied to every API call.
const requestTimeout = 10 * time.Second

// APIError wraps a transport or status failure from the GroupMe API.
// Every client operation reports failures through this one error kind.
type APIError struct {
	Op         string // operation name, e.g. "create bot"
	StatusCode int    // HTTP status, 0 on transport failure
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("groupme: failed to %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("groupme: failed to %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// BotInfo describes a bot record as returned by the GroupMe API.
type BotInfo struct {
	BotID       string `json:"bot_id"`
	Name        string `json:"name"`
	GroupID     string `json:"group_id"`
	CallbackURL string `json:"callback_url"`
	AvatarURL   string `json:"avatar_url"`
}

// Group summarizes one group the API key's user belongs to.
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateBotParams holds the fields required to create a bot in a group.
type CreateBotParams struct {
	Name        string
	GroupID     string
	CallbackURL string
	AvatarURL   string
}

// PostMessageParams holds the fields for posting a message as a bot.
// PictureURL and Attachments are optional.
type PostMessageParams struct {
	BotID       string
	Text        string
	PictureURL  string
	Attachments []map[string]any
}

// PostLocationParams holds the fields for posting a location pin.
type PostLocationParams struct {
	BotID string
	Name  string
	Lat   float64
	Lng   float64
	Text  string // falls back to Name when empty
}

// APIResponse carries the decoded "response" portion of a GroupMe API
// envelope, when the call returned one.
type APIResponse struct {
	StatusCode int
	Response   json.RawMessage
}

// envelope is the standard GroupMe API wrapper.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Meta     struct {
		Code   int      `json:"code"`
		Errors []string `json:"errors"`
	} `json:"meta"`
}

// Client is an API-key scoped GroupMe client. It is safe for
// concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a GroupMe API client for the given API key.
func NewClient(token string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    DefaultBaseURL,
		token:      token,
		logger:     logger.With("component", "groupme_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateBot creates a new bot in a group and returns its record.
func (c *Client) CreateBot(ctx context.Context, params CreateBotParams) (*BotInfo, error) {
	bot := map[string]any{
		"name":         params.Name,
		"group_id":     params.GroupID,
		"callback_url": params.CallbackURL,
	}
	if params.AvatarURL != "" {
		bot["avatar_url"] = params.AvatarURL
	}

	resp, err := c.post(ctx, "create bot", "/bots", map[string]any{"bot": bot}, true)
	if err != nil {
		return nil, err
	}

	var created struct {
		Bot BotInfo `json:"bot"`
	}
	if err := json.Unmarshal(resp.Response, &created); err != nil {
		return nil, &APIError{Op: "create bot", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.InfoContext(ctx, "Created bot", "bot_id", created.Bot.BotID, "group_id", params.GroupID)
	return &created.Bot, nil
}

// DestroyBot deletes a bot by id.
func (c *Client) DestroyBot(ctx context.Context, botID string) error {
	_, err := c.post(ctx, "destroy bot", "/bots/destroy", map[string]any{"bot_id": botID}, true)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Destroyed bot", "bot_id", botID)
	return nil
}

// PostMessage sends a message as the given bot. A fresh source_guid is
// stamped on every post so the platform can deduplicate retried sends.
func (c *Client) PostMessage(ctx context.Context, params PostMessageParams) (*APIResponse, error) {
	if params.BotID == "" {
		return nil, &APIError{Op: "post message", Err: fmt.Errorf("bot_id not set")}
	}

	payload := map[string]any{
		"bot_id":      params.BotID,
		"text":        params.Text,
		"source_guid": uuid.NewString(),
	}
	if params.PictureURL != "" {
		payload["picture_url"] = params.PictureURL
	}
	if len(params.Attachments) > 0 {
		payload["attachments"] = params.Attachments
	}

	return c.post(ctx, "post message", "/bots/post", payload, false)
}

// PostLocation sends a location attachment as the given bot. The
// message text falls back to the location name when empty.
func (c *Client) PostLocation(ctx context.Context, params PostLocationParams) (*APIResponse, error) {
	text := params.Text
	if text == "" {
		text = params.Name
	}
	return c.PostMessage(ctx, PostMessageParams{
		BotID: params.BotID,
		Text:  text,
		Attachments: []map[string]any{{
			"type": "location",
			"lat":  strconv.FormatFloat(params.Lat, 'f', -1, 64),
			"lng":  strconv.FormatFloat(params.Lng, 'f', -1, 64),
			"name": params.Name,
		}},
	})
}

// ListBots fetches all bot records owned by the API key's user.
func (c *Client) ListBots(ctx context.Context) ([]BotInfo, error) {
	resp, err := c.get(ctx, "list bots", "/bots")
	if err != nil {
		return nil, err
	}

	var bots []BotInfo
	if err := json.Unmarshal(resp.Response, &bots); err != nil {
		return nil, &APIError{Op: "list bots", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return bots, nil
}

// ListGroups fetches all groups the API key's user belongs to.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	resp, err := c.get(ctx, "list groups", "/groups")
	if err != nil {
		return nil, err
	}

	var groups []Group
	if err := json.Unmarshal(resp.Response, &groups); err != nil {
		return nil, &APIError{Op: "list groups", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return groups, nil
}

// post issues an authenticated POST. withToken controls whether the API
// key rides along as a query parameter; bot posts authenticate by
// bot_id instead.
func (c *Client) post(ctx context.Context, op, path string, payload map[string]any, withToken bool) (*APIResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &APIError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	reqURL := c.baseURL + path
	if withToken {
		reqURL += "?token=" + url.QueryEscape(c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, &APIError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(op, req)
}

func (c *Client) get(ctx context.Context, op, path string) (*APIResponse, error) {
	reqURL := c.baseURL + path + "?token=" + url.QueryEscape(c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &APIError{Op: op, Err: err}
	}

	return c.do(op, req)
}

func (c *Client) do(op string, req *http.Request) (*APIResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", bodySummary(body))}
	}

	out := &APIResponse{StatusCode: resp.StatusCode}
	if len(body) > 0 {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil {
			out.Response = env.Response
		}
	}
	return out, nil
}

func bodySummary(body []byte) string {
	const maxLen = 200
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Meta.Errors) > 0 {
		return env.Meta.Errors[0]
	}
	s := string(body)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
