// Package qualer is a thin client for the parts of the Qualer calibration API
// the sync needs: assets, service records, work items and order documents.
package qualer

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

	"github.com/google/uuid"

	"github.com/joseph-ayodele/wirecert-sync/internal/common"
)

// Config for the Qualer client.
type Config struct {
	BaseURL string        // e.g. https://jgiquality.qualer.com
	APIKey  string        // sent as "Authorization: Api-Token <key>"
	Timeout time.Duration // http client timeout
}

type Client struct {
	cfg     Config
	http    *http.Client
	schemas *schemaSet
	logger  *slog.Logger
}

// NewClient validates cfg and returns a client. A missing API key is a startup error.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeAuth, "qualer api token is empty", common.ErrUnauthorized)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://jgiquality.qualer.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	schemas, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("compile response schemas: %w", err)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		schemas: schemas,
		logger:  logger,
	}, nil
}

// get issues an authenticated GET and returns the raw body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, query url.Values, accept string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, accept)
}

// postJSON sends body as JSON and returns the raw body of a 2xx response.
func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, b, "application/json")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, accept string) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Api-Token "+c.cfg.APIKey)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("qualer.http.request", "req_id", reqID, "run_id", common.RunIDFromContext(ctx), "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("qualer.http.send_error", "req_id", reqID, "path", path, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("qualer http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("qualer response body close error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("qualer.http.response",
		"req_id", reqID,
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, common.StatusError("qualer", resp.StatusCode, raw)
	}
	return raw, nil
}
