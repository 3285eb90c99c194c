package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/Tiliavir/boat-time-tracker/internal/model"
)

// ElapsedTicker calls fn once per interval with the time elapsed since a
// start instant. It only reads the clock and never touches tracker state.
type ElapsedTicker struct {
	interval time.Duration
	now      func() time.Time
	fn       func(time.Duration)

	mu     sync.Mutex
	start  time.Time
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewElapsedTicker returns an idle ticker. now defaults to time.Now.
func NewElapsedTicker(interval time.Duration, now func() time.Time, fn func(time.Duration)) *ElapsedTicker {
	if interval <= 0 {
		interval = time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &ElapsedTicker{interval: interval, now: now, fn: fn}
}

// Follow starts ticking from start, replacing any previous run. Following
// the same start again is a no-op.
func (k *ElapsedTicker) Follow(start time.Time) {
	k.mu.Lock()
	if k.closed || (k.cancel != nil && k.start.Equal(start)) {
		k.mu.Unlock()
		return
	}
	prev := k.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	k.start, k.cancel, k.done = start, cancel, done
	k.mu.Unlock()

	if prev != nil {
		<-prev
	}
	go k.run(ctx, start, done)
}

func (k *ElapsedTicker) run(ctx context.Context, start time.Time, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(k.interval)
	defer t.Stop()

	k.fn(k.now().Sub(start))
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ctx.Err() != nil {
				return
			}
			k.fn(k.now().Sub(start))
		}
	}
}

// Halt cancels the current run, if any, and waits for it to exit.
func (k *ElapsedTicker) Halt() {
	k.mu.Lock()
	done := k.stopLocked()
	k.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Close halts the ticker for good. Later Follow calls are ignored.
func (k *ElapsedTicker) Close() {
	k.mu.Lock()
	k.closed = true
	done := k.stopLocked()
	k.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a run is in progress.
func (k *ElapsedTicker) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cancel != nil
}

// stopLocked cancels the run exactly once and hands back its done channel.
func (k *ElapsedTicker) stopLocked() chan struct{} {
	if k.cancel == nil {
		return nil
	}
	k.cancel()
	done := k.done
	k.cancel, k.done = nil, nil
	return done
}

// WatchElapsed ticks fn every interval while an entry is active, starting
// when one becomes current and halting when it stops. The returned function
// tears the watch down; it is safe to call more than once.
func (t *Tracker) WatchElapsed(interval time.Duration, fn func(time.Duration)) (stop func()) {
	k := NewElapsedTicker(interval, t.now, fn)
	unsubscribe := t.current.Subscribe(func(e *model.Entry) {
		if e == nil {
			k.Halt()
			return
		}
		k.Follow(e.Start)
	})
	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			k.Close()
		})
	}
}
