// Package graph reads and writes a single file on a SharePoint document library
// through the Microsoft Graph drive API.
package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/wirecert-sync/internal/common"
)

// Config for the drive client.
type Config struct {
	Endpoint    string // default https://graph.microsoft.com/v1.0
	DriveID     string
	Timeout     time.Duration
	Credentials Credentials
}

type DriveClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewDriveClient validates credentials; bad or missing credentials fail here, at startup.
func NewDriveClient(ctx context.Context, cfg Config, logger *slog.Logger) (*DriveClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Credentials.validate(); err != nil {
		return nil, err
	}
	if cfg.DriveID == "" {
		return nil, common.NewAppError(common.CodeConfig, "drive id is empty", common.ErrInvalidInput)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://graph.microsoft.com/v1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	base := &http.Client{Timeout: cfg.Timeout}
	return &DriveClient{
		cfg:    cfg,
		http:   authorizedClient(ctx, cfg.Credentials, base),
		logger: logger,
	}, nil
}

// ContentURL builds {endpoint}/drives/{drive_id}/root:/{path}:/content.
func (d *DriveClient) ContentURL(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/drives/%s/root:/%s:/content",
		strings.TrimRight(d.cfg.Endpoint, "/"), url.PathEscape(d.cfg.DriveID), strings.Join(segs, "/"))
}

// Download returns the current content of the file at path.
func (d *DriveClient) Download(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.ContentURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	body, err := d.do(req)
	if err != nil {
		d.logger.Error("graph.download.failed", "path", path, "error", err)
		return nil, err
	}
	d.logger.Info("graph.download.ok", "path", path, "bytes", len(body), "elapsed_ms", time.Since(start).Milliseconds())
	return body, nil
}

// Upload overwrites the file at path with content.
func (d *DriveClient) Upload(ctx context.Context, path string, content []byte, contentType string) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, d.ContentURL(path), bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if _, err := d.do(req); err != nil {
		return err
	}
	d.logger.Info("graph.upload.ok", "path", path, "bytes", len(content), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

func (d *DriveClient) do(req *http.Request) ([]byte, error) {
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			d.logger.Warn("graph response body close error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, common.StatusError("graph", resp.StatusCode, raw)
	}
	return raw, nil
}
