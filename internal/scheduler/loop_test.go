package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by the waited duration instead of sleeping.
type fakeClock struct {
	t     time.Time
	waits int
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) wait(ctx context.Context, d time.Duration) error {
	c.waits++
	c.t = c.t.Add(d)
	return ctx.Err()
}

func newTestLoop(start time.Time, cfg Config) (*Loop, *fakeClock) {
	clk := &fakeClock{t: start}
	l := NewLoop(cfg, nil)
	l.now = clk.now
	l.wait = clk.wait
	return l, clk
}

func TestRun_PollsUntilCutoff(t *testing.T) {
	start := time.Date(2026, 5, 4, 16, 0, 0, 0, time.Local)
	l, clk := newTestLoop(start, Config{Interval: 10 * time.Minute, CutoffHour: 17})

	passes := 0
	err := l.Run(context.Background(), func(context.Context) error {
		passes++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 6, passes, "16:00 through 16:50")
	assert.Equal(t, 6, clk.waits)
}

func TestRun_AfterCutoffDoesNothing(t *testing.T) {
	l, _ := newTestLoop(time.Date(2026, 5, 4, 17, 0, 0, 0, time.Local), Config{Interval: time.Minute, CutoffHour: 17})
	called := false
	require.NoError(t, l.Run(context.Background(), func(context.Context) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestRun_ContinuesAfterErrorAndPanic(t *testing.T) {
	l, _ := newTestLoop(time.Date(2026, 5, 4, 16, 30, 0, 0, time.Local), Config{Interval: 10 * time.Minute, CutoffHour: 17})

	passes := 0
	err := l.Run(context.Background(), func(context.Context) error {
		passes++
		switch passes {
		case 1:
			return errors.New("graph 503")
		case 2:
			panic("nil map")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, passes)
}

func TestRun_StopsOnCancel(t *testing.T) {
	l, _ := newTestLoop(time.Date(2026, 5, 4, 8, 0, 0, 0, time.Local), Config{Interval: time.Minute, CutoffHour: 17})
	ctx, cancel := context.WithCancel(context.Background())

	passes := 0
	err := l.Run(ctx, func(context.Context) error {
		passes++
		if passes == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, passes)
}

func TestWaitCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitCtx(ctx, time.Hour), context.Canceled)
	assert.NoError(t, waitCtx(context.Background(), time.Millisecond))
}
