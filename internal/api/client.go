// Package api talks to the EduMentor backend: fetching chat history,
// logging in, and the per-conversation archive/delete actions. It shapes
// every observed response variant into the models the rest of the tool
// consumes; nothing past this package touches raw payloads.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edumentor/mentor-history/pkg/models"
)

const defaultTimeout = 30 * time.Second

// Client is an authenticated EduMentor backend client. The bearer token is
// explicit client state set at construction or via Login; there is no
// ambient/global auth.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client for the given backend. token may be empty for
// a client that will call Login first.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// SetToken replaces the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) { c.token = token }

// Authenticated reports whether the client carries a token.
func (c *Client) Authenticated() bool { return c.token != "" }

// Login exchanges credentials for a bearer token (OAuth2 password flow on
// POST /token) and installs it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.do(req, &body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("login response carried no access token")
	}
	c.token = body.AccessToken
	return body.AccessToken, nil
}

// ChatHistory fetches a user's history feed. The backend answers in one of
// two shapes (legacy flat entries vs server-grouped conversations); the
// returned HistoryResult says which arrived.
func (c *Client) ChatHistory(ctx context.Context, username string) (*HistoryResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		"/chat_history/"+url.PathEscape(username), nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}

	result, err := decodeHistoryPayload(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	c.logger.Debug("fetched chat history",
		"username", username,
		"grouped", result.Grouped,
		"entries", len(result.Entries),
		"conversations", len(result.Conversations))
	return result, nil
}

// Conversations lists server-grouped conversations, newest first.
func (c *Client) Conversations(ctx context.Context, limit, skip int) ([]models.Conversation, error) {
	path := fmt.Sprintf("/conversations?limit=%d&skip=%d", limit, skip)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Conversations []models.Conversation `json:"conversations"`
		Total         int                   `json:"total"`
	}
	if err := c.do(req, &body); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return body.Conversations, nil
}

// Conversation fetches a single conversation with all of its turns.
func (c *Client) Conversation(ctx context.Context, id string) (*models.Conversation, error) {
	req, err := c.newRequest(ctx, http.MethodGet,
		"/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var conv models.Conversation
	if err := c.do(req, &conv); err != nil {
		return nil, fmt.Errorf("failed to fetch conversation %s: %w", id, err)
	}
	return &conv, nil
}

// ArchiveConversation marks a conversation archived without deleting it.
func (c *Client) ArchiveConversation(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodPost,
		"/conversations/"+url.PathEscape(id)+"/archive", bytes.NewReader([]byte("{}")))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to archive conversation %s: %w", id, err)
	}
	c.logger.Info("archived conversation", "id", id)
	return nil
}

// DeleteConversation removes a conversation permanently.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete,
		"/conversations/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", id, err)
	}
	c.logger.Info("deleted conversation", "id", id)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do executes the request and decodes a 2xx JSON body into out (skipped when
// out is nil). Non-2xx responses surface the backend's detail message.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp)
	}
	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// errorFromResponse extracts the FastAPI {"detail": ...} message when
// present, falling back to the raw body.
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, detail.Detail)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("backend returned %d: %s", resp.StatusCode, msg)
}
