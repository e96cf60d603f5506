package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes pdftoppm and tesseract. Tests substitute a stub.
// The logger passed in carries the step and page being processed.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	logger.Debug("ocr.exec.start", "cmd_line", strings.Join(append([]string{name}, args...), " "))

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		exitCode := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			exitCode = ee.ExitCode()
		}
		logger.Warn("ocr.exec.failed",
			"cmd", name,
			"exit_code", exitCode,
			"elapsed_ms", elapsed,
			"error", err,
			"stderr", truncate(errb.String(), 4<<10),
		)
		return out.Bytes(), errb.Bytes(), err
	}
	logger.Debug("ocr.exec.ok", "cmd", name, "elapsed_ms", elapsed, "stdout_bytes", out.Len())
	return out.Bytes(), errb.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
