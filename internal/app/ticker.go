package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Ticker periodically checks the session for an expired phase and asks the
// engine to advance it. Every server instance runs one; concurrent tickers
// are harmless because advancement goes through the conditional update. A
// failed check backs off and is retried from scratch on a later tick, so a
// transient store outage never corrupts state.
type Ticker struct {
	engine     *Engine
	interval   time.Duration
	maxBackoff time.Duration
	log        *zap.Logger
}

func NewTicker(engine *Engine, interval time.Duration, log *zap.Logger) *Ticker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Ticker{
		engine:     engine,
		interval:   interval,
		maxBackoff: 8 * interval,
		log:        log,
	}
}

// Run blocks until ctx is canceled.
func (t *Ticker) Run(ctx context.Context) {
	wait := t.interval
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if _, err := t.engine.Advance(ctx); err != nil {
			wait *= 2
			if wait > t.maxBackoff {
				wait = t.maxBackoff
			}
			t.log.Warn("phase check failed", zap.Error(err), zap.Duration("retryIn", wait))
		} else {
			wait = t.interval
		}
		timer.Reset(wait)
	}
}
