package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/banshee-data/stride.report/internal/httputil"
	"github.com/banshee-data/stride.report/internal/posetrack"
)

// Client talks to a running stride server.
type Client struct {
	baseURL string
	http    httputil.HTTPClient
}

// NewClient creates a client for the server at baseURL. A nil c uses
// http.DefaultClient.
func NewClient(baseURL string, c httputil.HTTPClient) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

// UploadTrack posts track for analysis and returns the stored run.
func (c *Client) UploadTrack(ctx context.Context, track *posetrack.Track) (*RunView, error) {
	data, err := json.Marshal(track)
	if err != nil {
		return nil, fmt.Errorf("failed to encode track: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/runs", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doRun(req, http.StatusCreated)
}

// GetRun fetches a stored run.
func (c *Client) GetRun(ctx context.Context, id string) (*RunView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/runs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return c.doRun(req, http.StatusOK)
}

func (c *Client) doRun(req *http.Request, want int) (*RunView, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		var e httputil.ErrorBody
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%s %s: %d %s", req.Method, req.URL.Path, resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	var run RunView
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	if run.Run == nil {
		return nil, fmt.Errorf("response carries no run")
	}
	return &run, nil
}
