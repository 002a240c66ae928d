// Package reminder implements the periodic re-speak loop: after an
// announcement that needs acknowledgement (a permission prompt, a
// finished task), the same text is spoken again every interval until the
// user responds.
package reminder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/tts"
)

// Reminder re-speaks a fixed piece of text every interval until
// cancelled.
type Reminder struct {
	interval  time.Duration
	interrupt func()
	log       *logger.Logger

	active atomic.Bool
	count  atomic.Uint32

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds a Reminder that re-speaks every interval. interrupt, when
// non-nil, is invoked on Cancel so a speak already in flight inside the
// loop stops too; pass the synthesizer's Cancel.
func New(interval time.Duration, interrupt func(), log *logger.Logger) *Reminder {
	return &Reminder{interval: interval, interrupt: interrupt, log: log}
}

// Start cancels any previous reminder, zeroes the count, and spawns a
// goroutine that repeatedly sleeps interval, checks active, increments
// the count, and calls speak(text).
func (r *Reminder) Start(text string, speak func(string) tts.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.active.Store(true)
	r.count.Store(0)

	go r.loop(ctx, text, speak)
}

func (r *Reminder) loop(ctx context.Context, text string, speak func(string) tts.Result) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.active.Load() {
				return
			}
			r.count.Add(1)
			speak(text)
		}
	}
}

// Cancel atomically clears active, aborts the spawned task (interrupting
// any speak in flight inside it), and returns-and-resets the count.
func (r *Reminder) Cancel() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.active.Store(false)
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
		if r.interrupt != nil {
			r.interrupt()
		}
	}
	return r.count.Swap(0)
}

// Status reports whether the reminder is active and its current fire count,
// for GET /status.
func (r *Reminder) Status() (bool, uint32) {
	return r.active.Load(), r.count.Load()
}
