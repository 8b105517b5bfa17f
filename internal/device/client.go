// Package device talks to the syringe-pump controller's web endpoints.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrDeviceUnavailable indicates the controller could not be reached or
// refused a command.
var ErrDeviceUnavailable = errors.New("device unavailable")

const defaultTimeout = 10 * time.Second

// StatusError is returned when the controller answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("device %s returned %d", e.Endpoint, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	return ErrDeviceUnavailable
}

// Command is a single extract or dispense request.
type Command struct {
	Volume     float64
	Port       int
	SerialPort string
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client issues commands to the controller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a controller client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Extract draws cmd.Volume microlitres from cmd.Port.
func (c *Client) Extract(ctx context.Context, cmd Command) error {
	return c.get(ctx, "extract", commandQuery(cmd))
}

// Dispense pushes cmd.Volume microlitres out through cmd.Port.
func (c *Client) Dispense(ctx context.Context, cmd Command) error {
	return c.get(ctx, "dispense", commandQuery(cmd))
}

// Execute runs the command chain queued on serialPort.
func (c *Client) Execute(ctx context.Context, serialPort string) error {
	return c.get(ctx, "execute", url.Values{"serial_port": {serialPort}})
}

// Save posts a serialized protocol to the save endpoint. payload is
// encoded as JSON.
func (c *Client) Save(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode save payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/save", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, "save")
}

// Volumes go out as whole microlitres; the controller parses integers.
func commandQuery(cmd Command) url.Values {
	return url.Values{
		"volume":      {strconv.FormatInt(int64(math.Round(cmd.Volume)), 10)},
		"port":        {strconv.Itoa(cmd.Port)},
		"serial_port": {cmd.SerialPort},
	}
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) error {
	target := c.baseURL + "/" + endpoint + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	return c.do(req, endpoint)
}

func (c *Client) do(req *http.Request, endpoint string) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("device request failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("call device %s: %w: %w", endpoint, ErrDeviceUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("device request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
