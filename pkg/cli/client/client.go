// Package client is a thin HTTP client for the orbitd REST API, used by
// the orbitctl command line tool.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/availops/orbitd/pkg/types"
)

// Options configures the API client.
type Options struct {
	// Address is the base URL of the orbitd API, e.g. http://localhost:8080.
	Address string

	// APIKey authenticates job submissions. Optional for reads.
	APIKey string

	// Timeout bounds one request. Zero means 35 minutes, enough to cover
	// a synchronous deploy.
	Timeout time.Duration
}

// DefaultOptions returns client options pointing at a local daemon.
func DefaultOptions() Options {
	return Options{
		Address: "http://localhost:8080",
		Timeout: 35 * time.Minute,
	}
}

// Client talks to the orbitd REST API.
type Client struct {
	options Options
	http    *http.Client
}

// New creates an API client.
func New(options Options) *Client {
	if options.Address == "" {
		options.Address = DefaultOptions().Address
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultOptions().Timeout
	}
	return &Client{
		options: options,
		http:    &http.Client{Timeout: options.Timeout},
	}
}

// RollupStatus is the public view of a rollup record served by the API.
type RollupStatus struct {
	ID          string             `json:"id"`
	State       types.RollupState  `json:"state"`
	Chain       types.ChainConfig  `json:"chain"`
	Metadata    types.Metadata     `json:"metadata"`
	Bridge      types.BridgeConfig `json:"bridge"`
	Health      types.HealthStatus `json:"health"`
	ContainerID string             `json:"containerId,omitempty"`
	UpdatedAt   string             `json:"updatedAt"`
}

// Logs is a log tail for one rollup.
type Logs struct {
	ID    string   `json:"id"`
	Lines []string `json:"lines"`
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Status fetches one rollup's status.
func (c *Client) Status(id string) (*RollupStatus, error) {
	var out RollupStatus
	if err := c.get(fmt.Sprintf("/v1/rollups/%s/status", url.PathEscape(id)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches all rollups.
func (c *Client) List() ([]RollupStatus, error) {
	var out []RollupStatus
	if err := c.get("/v1/rollups", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TailLogs fetches recent log lines. Source is "events" or "node".
func (c *Client) TailLogs(id, source string, tail int) (*Logs, error) {
	q := url.Values{}
	if source != "" {
		q.Set("source", source)
	}
	if tail > 0 {
		q.Set("tail", strconv.Itoa(tail))
	}
	path := fmt.Sprintf("/v1/rollups/%s/logs", url.PathEscape(id))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out Logs
	if err := c.get(path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches the last health observation for a rollup.
func (c *Client) Health(id string) (*types.HealthStatus, error) {
	var out types.HealthStatus
	if err := c.get(fmt.Sprintf("/v1/rollups/%s/health", url.PathEscape(id)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitJob submits a lifecycle job and waits for its synchronous result.
func (c *Client) SubmitJob(id string, op types.Operation, args map[string]string) (*types.TransitionResult, error) {
	body, err := json.Marshal(map[string]interface{}{"args": args})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/v1/rollups/%s/jobs/%s", url.PathEscape(id), url.PathEscape(string(op)))
	req, err := http.NewRequest(http.MethodPost, c.options.Address+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.options.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.options.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Every outcome, including failures and rejections, carries a full
	// transition result body.
	var result types.TransitionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	return &result, nil
}

func (c *Client) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.options.Address+path, nil)
	if err != nil {
		return err
	}
	if c.options.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.options.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
