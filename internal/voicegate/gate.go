// Package voicegate implements the shared predicate that keeps the TTS
// subsystem from talking over the user while dictation is recording.
//
// It is deliberately not a lock: it is a pair of (boolean, notifier). The
// dictation orchestrator closes the gate synchronously on the hotkey
// press edge; the TTS synthesizer checks the gate immediately before
// starting playback of each sentence and, if closed, waits on the
// notifier instead of polling.
package voicegate

import "sync"

// Gate coordinates dictation and TTS. Idle means speech may proceed.
type Gate struct {
	mu     sync.Mutex
	idle   bool
	waitCh chan struct{} // closed and replaced whenever idle transitions to true
}

// New returns a Gate that starts idle (TTS may speak).
func New() *Gate {
	return &Gate{idle: true, waitCh: make(chan struct{})}
}

// BeginVoiceInput closes the gate. Called once, synchronously, on the
// dictation orchestrator's IDLE→RECORDING transition.
func (g *Gate) BeginVoiceInput() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idle = false
}

// EndVoiceInput opens the gate and wakes every waiter. Called once, from
// transitionToIdle, on every PROCESSING exit path.
func (g *Gate) EndVoiceInput() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idle = true
	close(g.waitCh)
	g.waitCh = make(chan struct{})
}

// IsIdle reports whether speech may currently proceed.
func (g *Gate) IsIdle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idle
}

// Wait blocks until the gate opens. If it is already open, it returns
// immediately. Safe for any number of concurrent waiters — each gets its
// own read of the current channel before checking state, so a close that
// races with Wait is never missed.
func (g *Gate) Wait() {
	for {
		g.mu.Lock()
		if g.idle {
			g.mu.Unlock()
			return
		}
		ch := g.waitCh
		g.mu.Unlock()
		<-ch
	}
}
