package tracker

import (
	"context"
	"sync"
	"time"
)

// timerSet is the pair of checkpoint producers owned by one session.
type timerSet struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// stop cancels the producers and waits for them to exit. Safe on nil.
func (t *timerSet) stop() {
	if t == nil {
		return
	}
	t.cancel()
	t.wg.Wait()
}

// armTimersLocked starts the in-process checkpoint ticker and the coarse alarm.
// Both drive the same Checkpoint, which skips overlapping triggers on its own.
func (e *Engine) armTimersLocked() {
	if e.timers != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &timerSet{cancel: cancel}
	e.startProducer(ctx, t, e.cfg.CheckpointInterval())
	e.startProducer(ctx, t, e.cfg.AlarmInterval())
	e.timers = t
}

func (e *Engine) startProducer(ctx context.Context, t *timerSet, every time.Duration) {
	if every <= 0 {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Checkpoint(ctx)
			}
		}
	}()
}
