package ttsqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Mizzlr/whisper-typer/internal/history"
	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/reminder"
	"github.com/Mizzlr/whisper-typer/internal/tts"
)

type fakeSpeaker struct {
	mu         sync.Mutex
	spoken     []string
	cancelText map[string]bool // Speak of these texts reports cancelled
	voice      string
}

func (f *fakeSpeaker) Speak(text string) tts.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelText[text] {
		return tts.Result{Cancelled: true, TextSpoken: text}
	}
	f.spoken = append(f.spoken, text)
	return tts.Result{TextSpoken: text}
}

func (f *fakeSpeaker) Cancel()      {}
func (f *fakeSpeaker) Interrupt()   {}
func (f *fakeSpeaker) ClearCancel() {}

func (f *fakeSpeaker) SetVoice(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voice = name
	return nil
}

func (f *fakeSpeaker) Voice() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice
}

func (f *fakeSpeaker) IsSpeaking() bool { return false }

func (f *fakeSpeaker) spokenTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.spoken))
	copy(out, f.spoken)
	return out
}

type passthroughSummarizer struct{}

func (passthroughSummarizer) Summarize(_ context.Context, text string) (string, float64) {
	return text, 0
}

func newTestEngine(t *testing.T) (*Engine, *fakeSpeaker) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	hist, err := history.NewStore(t.TempDir(), "-tts")
	if err != nil {
		t.Fatalf("history store: %v", err)
	}
	fake := &fakeSpeaker{voice: "af_heart"}
	rem := reminder.New(time.Hour, nil, log)
	return New(fake, passthroughSummarizer{}, rem, hist, log), fake
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCancelDefersQueuedJobsAndUserInputReplays(t *testing.T) {
	engine, fake := newTestEngine(t)

	if got := engine.HandleSpeak(SpeakJob{Text: "job A", SessionID: "s1"}); got != Queued {
		t.Fatalf("enqueue A: got %q, want %q", got, Queued)
	}
	if got := engine.HandleSpeak(SpeakJob{Text: "job B", SessionID: "s2"}); got != Queued {
		t.Fatalf("enqueue B: got %q, want %q", got, Queued)
	}

	engine.Cancel() // A and B are now stale

	if got := engine.HandleSpeak(SpeakJob{Text: "job C", SessionID: "s1"}); got != Queued {
		t.Fatalf("enqueue C: got %q, want %q", got, Queued)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	waitFor(t, "C to speak", func() bool { return len(fake.spokenTexts()) == 1 })
	if got := fake.spokenTexts()[0]; got != "job C" {
		t.Fatalf("first spoken text = %q, want %q", got, "job C")
	}
	if got := engine.Status().DeferredCount; got != 2 {
		t.Fatalf("deferred count = %d, want 2", got)
	}

	// The user is typing in s1: A is discarded, B re-queued and spoken.
	if requeued := engine.UserInput("s1"); requeued != 1 {
		t.Fatalf("requeued = %d, want 1", requeued)
	}
	waitFor(t, "B to speak", func() bool { return len(fake.spokenTexts()) == 2 })
	if got := fake.spokenTexts()[1]; got != "job B" {
		t.Fatalf("second spoken text = %q, want %q", got, "job B")
	}
	if got := engine.Status().DeferredCount; got != 0 {
		t.Fatalf("deferred count after user-input = %d, want 0", got)
	}
}

func TestCancelledJobIsDeferredOnceThenDropped(t *testing.T) {
	engine, fake := newTestEngine(t)
	fake.cancelText = map[string]bool{"flaky": true}

	if got := engine.HandleSpeak(SpeakJob{Text: "flaky", SessionID: "s2"}); got != Queued {
		t.Fatalf("enqueue: got %q, want %q", got, Queued)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	waitFor(t, "first cancel to defer", func() bool { return engine.Status().DeferredCount == 1 })

	// Replay from a different session: retries becomes 1; the second
	// cancelled run must drop the job instead of deferring again.
	if requeued := engine.UserInput("s1"); requeued != 1 {
		t.Fatalf("requeued = %d, want 1", requeued)
	}
	waitFor(t, "queue to drain", func() bool { return engine.Status().QueueDepth == 0 })
	time.Sleep(20 * time.Millisecond)
	if got := engine.Status().DeferredCount; got != 0 {
		t.Fatalf("deferred count = %d, want 0 (retried job must be dropped)", got)
	}
	if got := fake.spokenTexts(); len(got) != 0 {
		t.Fatalf("expected no completed speech, got %v", got)
	}
}

func TestHandleSpeakDisabledAndQueueFull(t *testing.T) {
	engine, _ := newTestEngine(t)

	engine.Disable()
	if got := engine.HandleSpeak(SpeakJob{Text: "nope"}); got != Disabled {
		t.Fatalf("got %q, want %q", got, Disabled)
	}
	engine.Enable()

	// No consumer is running, so the channel fills at exactly capacity.
	for i := 0; i < queueCapacity; i++ {
		if got := engine.HandleSpeak(SpeakJob{Text: "fill"}); got != Queued {
			t.Fatalf("enqueue %d: got %q, want %q", i, got, Queued)
		}
	}
	if got := engine.HandleSpeak(SpeakJob{Text: "overflow"}); got != QueueFull {
		t.Fatalf("got %q, want %q", got, QueueFull)
	}
}

func TestDeferredListIsBoundedAndWipedOnDisable(t *testing.T) {
	engine, _ := newTestEngine(t)

	for i := 0; i < queueCapacity; i++ {
		if got := engine.HandleSpeak(SpeakJob{Text: "stale", SessionID: "s2"}); got != Queued {
			t.Fatalf("enqueue %d: got %q, want %q", i, got, Queued)
		}
	}
	engine.Cancel()

	firstCtx, stopFirst := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		engine.Run(firstCtx)
		close(firstDone)
	}()

	waitFor(t, "all stale jobs to defer", func() bool {
		return engine.Status().DeferredCount == deferredCapacity
	})
	stopFirst()
	<-firstDone

	// One more stale job with the deferred list already full: it must be
	// dropped, never exceeding the cap.
	if got := engine.HandleSpeak(SpeakJob{Text: "one more", SessionID: "s2"}); got != Queued {
		t.Fatalf("enqueue: got %q, want %q", got, Queued)
	}
	engine.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	waitFor(t, "queue to drain", func() bool { return engine.Status().QueueDepth == 0 })
	time.Sleep(20 * time.Millisecond)
	if got := engine.Status().DeferredCount; got != deferredCapacity {
		t.Fatalf("deferred count = %d, want %d", got, deferredCapacity)
	}

	engine.Disable()
	if got := engine.Status().DeferredCount; got != 0 {
		t.Fatalf("deferred count after disable = %d, want 0", got)
	}
}
