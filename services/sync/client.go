package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"dramastream/models"
)

// Client talks to the remote continue-watching store over HTTP. Each
// process gets a random device id so the remote side can tell
// concurrent writers apart.
type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	httpc    *http.Client
}

// NewClient builds a bridge client for the configured endpoint.
func NewClient(baseURL, apiKey string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		deviceID: uuid.NewString(),
		httpc:    httpc,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode sync payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", c.deviceID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sync request failed: %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode sync response: %w", err)
		}
	}
	return nil
}

func (c *Client) userPath(userID, suffix string) string {
	return "/v1/users/" + url.PathEscape(userID) + suffix
}

// Push upserts one ledger entry for the user.
func (c *Client) Push(ctx context.Context, userID string, entry models.ContinueWatchingEntry) error {
	return c.do(ctx, http.MethodPut, c.userPath(userID, "/continue-watching/"+url.PathEscape(entry.ScopedKey())), entry, nil)
}

// Pull fetches every ledger entry stored remotely for the user.
func (c *Client) Pull(ctx context.Context, userID string) ([]models.ContinueWatchingEntry, error) {
	var out struct {
		Entries []models.ContinueWatchingEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, c.userPath(userID, "/continue-watching"), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Clear removes all remote ledger entries for the user.
func (c *Client) Clear(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, c.userPath(userID, "/continue-watching"), nil, nil)
}

// SaveProfile stores the user's profile alongside their ledger.
func (c *Client) SaveProfile(ctx context.Context, userID string, profile models.UserProfile) error {
	return c.do(ctx, http.MethodPut, c.userPath(userID, "/profile"), profile, nil)
}

var _ Bridge = (*Client)(nil)
