// Package ollama talks to the local Ollama model-serving daemon and
// implements the model-pull workflow: wait for the daemon's HTTP API, then
// pull a model inside the daemon's container exactly once.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// defaultRequestTimeout bounds one HTTP request. The poller supplies the
// overall budget; this only keeps a hung connection from eating it.
const defaultRequestTimeout = 5 * time.Second

// HTTPDoer abstracts *http.Client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a minimal Ollama API client.
type Client struct {
	baseURL string
	http    HTTPDoer
}

// NewClient creates a client for the daemon at baseURL
// (e.g. "http://localhost:11434").
func NewClient(baseURL string, doer HTTPDoer) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

// BaseURL returns the daemon URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Model is one entry of the /api/tags listing.
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
	ModifiedAt time.Time `json:"modified_at"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

// StatusError is returned when the daemon answers with a non-2xx status.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// ListModels returns the locally available models from /api/tags.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	body, err := c.get(ctx, "/api/tags")
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	var tags tagsResponse
	if err := json.NewDecoder(body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode /api/tags response: %w", err)
	}
	return tags.Models, nil
}

// Ready is the liveness probe: the tags endpoint answered with 2xx.
func (c *Client) Ready(ctx context.Context) error {
	body, err := c.get(ctx, "/api/tags")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// HasModel reports whether name is in the local listing. A name without a
// tag matches the ":latest" tag, as in the ollama CLI.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	want := NormalizeModelName(name)
	for _, m := range models {
		if NormalizeModelName(m.Name) == want {
			return true, nil
		}
	}
	return false, nil
}

// NormalizeModelName appends ":latest" when name has no tag.
func NormalizeModelName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}

func (c *Client) get(ctx context.Context, path string) (io.ReadCloser, error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}
	return resp.Body, nil
}
