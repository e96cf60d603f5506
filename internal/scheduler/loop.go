// Package scheduler repeats the sync pass on a fixed interval until the daily cutoff.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Pass is one unit of scheduled work.
type Pass func(ctx context.Context) error

type Config struct {
	Interval   time.Duration
	CutoffHour int // local hour at which polling stops, 0-24
}

// Loop polls while the local hour is before the cutoff.
type Loop struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	wait   func(ctx context.Context, d time.Duration) error
}

func NewLoop(cfg Config, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	return &Loop{cfg: cfg, logger: logger, now: time.Now, wait: waitCtx}
}

// Run calls pass until the cutoff hour is reached or ctx is cancelled. Errors and
// panics from pass are logged and polling continues. Reaching the cutoff returns nil.
func (l *Loop) Run(ctx context.Context, pass Pass) error {
	l.logger.Info("scheduler.polling", "interval", l.cfg.Interval.String(), "cutoff_hour", l.cfg.CutoffHour)
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			l.logger.Info("scheduler.stopped", "reason", err.Error())
			return err
		}
		if now := l.now(); now.Hour() >= l.cfg.CutoffHour {
			l.logger.Info("scheduler.finished", "at", now.Format(time.Kitchen), "passes", n-1)
			return nil
		}

		if err := l.safePass(ctx, pass); err != nil {
			l.logger.Error("scheduler.pass.failed", "pass", n, "err", err)
		}

		if err := l.wait(ctx, l.cfg.Interval); err != nil {
			l.logger.Info("scheduler.stopped", "reason", err.Error())
			return err
		}
	}
}

func (l *Loop) safePass(ctx context.Context, pass Pass) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("scheduler.pass.panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("pass panicked: %v", r)
		}
	}()
	return pass(ctx)
}

func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
