// Package persist uploads the reconciled spreadsheet when its content changed.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUploadFailed is returned after every upload attempt failed.
var ErrUploadFailed = errors.New("upload failed")

// Uploader stores a file on the shared drive.
type Uploader interface {
	Upload(ctx context.Context, path string, content []byte, contentType string) error
}

// Policy is the upload retry policy. Backoff doubles after each failure.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultPolicy makes five attempts waiting 5s, 10s, 20s and 40s between them.
var DefaultPolicy = Policy{MaxAttempts: 5, InitialBackoff: 5 * time.Second}

// Payload is the encoded spreadsheet plus where it goes.
type Payload struct {
	Path        string
	ContentType string
	Content     []byte
}

// Outcome describes what Sync did.
type Outcome struct {
	Changed  bool
	Uploaded bool
	Attempts int
}

type Syncer struct {
	up     Uploader
	policy Policy
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewSyncer(up Uploader, policy Policy, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if policy.InitialBackoff < 0 {
		policy.InitialBackoff = 0
	}
	return &Syncer{up: up, policy: policy, logger: logger, sleep: sleepCtx}
}

// Sync uploads the payload only when beforeHash and afterHash differ.
// A failed attempt is retried with exponential backoff up to the policy limit.
func (s *Syncer) Sync(ctx context.Context, beforeHash, afterHash string, build func() (Payload, error)) (Outcome, error) {
	if beforeHash == afterHash {
		s.logger.Info("persist.no_change", "hash", afterHash)
		return Outcome{}, nil
	}
	out := Outcome{Changed: true}

	p, err := build()
	if err != nil {
		return out, fmt.Errorf("encode spreadsheet: %w", err)
	}

	wait := s.policy.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		out.Attempts = attempt
		lastErr = s.up.Upload(ctx, p.Path, p.Content, p.ContentType)
		if lastErr == nil {
			out.Uploaded = true
			s.logger.Info("persist.uploaded", "path", p.Path, "bytes", len(p.Content), "attempt", attempt)
			return out, nil
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		s.logger.Warn("persist.upload.failed", "path", p.Path, "attempt", attempt, "max_attempts", s.policy.MaxAttempts, "err", lastErr)
		if attempt == s.policy.MaxAttempts {
			break
		}
		if err := s.sleep(ctx, wait); err != nil {
			return out, err
		}
		wait *= 2
	}
	s.logger.Error("persist.upload.gave_up", "path", p.Path, "attempts", out.Attempts, "err", lastErr)
	return out, fmt.Errorf("%w after %d attempts: %w", ErrUploadFailed, out.Attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
