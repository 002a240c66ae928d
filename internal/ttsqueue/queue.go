// Package ttsqueue implements the bounded, cancellable, generation-stamped
// speak-job queue at the center of the notification engine. A single
// consumer goroutine owns the synthesizer and summarizer. A monotonic
// generation counter, stamped onto each job at enqueue time, lets a cancel
// invalidate everything queued or in flight without touching the channel;
// a bounded deferred list remembers interrupted jobs for a one-time replay
// when the user comes back.
package ttsqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Mizzlr/whisper-typer/internal/history"
	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/reminder"
	"github.com/Mizzlr/whisper-typer/internal/tts"
)

// Speaker is the synthesizer surface the consumer loop drives.
// *tts.Synthesizer implements it.
type Speaker interface {
	Speak(text string) tts.Result
	Cancel()
	Interrupt()
	ClearCancel()
	SetVoice(name string) error
	Voice() string
	IsSpeaking() bool
}

// Summarizer shortens text before it is spoken. *summarizer.Summarizer
// implements it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, float64)
}

// queueCapacity bounds pending jobs; deferredCapacity bounds interrupted
// jobs remembered for replay.
const queueCapacity = 20
const deferredCapacity = 20

// SpeakJob is one request to speak text.
type SpeakJob struct {
	Text          string
	Summarize     bool
	EventType     string
	StartReminder bool
	SessionID     string
	Generation    uint64
	Retries       int
}

// EnqueueResult is the outcome of handling a /speak request.
type EnqueueResult string

const (
	Queued    EnqueueResult = "queued"
	Disabled  EnqueueResult = "disabled"
	QueueFull EnqueueResult = "queue full"
)

// Status mirrors the GET /status response fields owned by the queue
// engine.
type Status struct {
	Enabled        bool
	Speaking       bool
	Voice          string
	ReminderActive bool
	ReminderCount  uint32
	QueueDepth     int
	DeferredCount  int
}

// Engine owns the synthesizer and summarizer and runs a single consumer
// goroutine.
type Engine struct {
	synth      Speaker
	summarizer Summarizer
	reminder   *reminder.Reminder
	history    *history.Store
	log        *logger.Logger

	queue      chan SpeakJob
	generation atomic.Uint64
	enabled    atomic.Bool

	deferredMu sync.Mutex
	deferred   []SpeakJob
}

// New builds an Engine. The caller must call Run in its own goroutine
// before calling HandleSpeak.
func New(synth Speaker, summ Summarizer, rem *reminder.Reminder, hist *history.Store, log *logger.Logger) *Engine {
	e := &Engine{
		synth:      synth,
		summarizer: summ,
		reminder:   rem,
		history:    hist,
		log:        log,
		queue:      make(chan SpeakJob, queueCapacity),
	}
	e.enabled.Store(true)
	return e
}

// Run drives the consumer loop until ctx is cancelled. Call it once, in
// its own goroutine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.queue:
			e.consume(ctx, job)
		}
	}
}

// HandleSpeak stamps the job with the current generation and enqueues
// it. Never blocks: a full queue is reported, not waited on.
func (e *Engine) HandleSpeak(job SpeakJob) EnqueueResult {
	if !e.enabled.Load() {
		return Disabled
	}
	job.Generation = e.generation.Load()
	job.Retries = 0

	select {
	case e.queue <- job:
		return Queued
	default:
		return QueueFull
	}
}

// consume processes one dequeued job: jobs stamped before the last
// cancel are deferred once then dropped; live jobs are spoken and
// deferred only if cancelled mid-speech.
func (e *Engine) consume(ctx context.Context, job SpeakJob) {
	currentGen := e.generation.Load()
	if job.Generation != currentGen {
		if job.Retries == 0 {
			e.pushDeferred(job)
		}
		return
	}

	cancelled := e.doSpeak(ctx, job)
	if cancelled {
		if job.Retries == 0 {
			e.pushDeferred(job)
		}
		// retries >= 1 and cancelled: dropped for good.
	}
}

// doSpeak runs the speak pipeline for one job and reports whether it
// was cancelled.
func (e *Engine) doSpeak(ctx context.Context, job SpeakJob) bool {
	e.reminder.Cancel()
	e.synth.Interrupt()
	e.synth.ClearCancel()

	spokenText := job.Text
	var summarizeMs float64
	if job.Summarize {
		spokenText, summarizeMs = e.summarizer.Summarize(ctx, job.Text)
	}

	result := e.synth.Speak(spokenText)

	if job.StartReminder && !result.Cancelled {
		e.reminder.Start(spokenText, e.synth.Speak)
	}

	e.recordHistory(job, spokenText, result, summarizeMs)
	return result.Cancelled
}

func (e *Engine) recordHistory(job SpeakJob, spokenText string, result tts.Result, summarizeMs float64) {
	rec := history.TTSRecord{
		Timestamp:          history.NowTimestamp(),
		EventType:          job.EventType,
		InputTextChars:     len([]rune(job.Text)),
		Summarized:         job.Summarize,
		SummaryText:        summaryTextOrEmpty(job, spokenText),
		OllamaLatencyMs:    summarizeMs,
		KokoroLatencyMs:    float64(result.GenerateMs),
		PlaybackDurationMs: float64(result.PlaybackMs),
		TotalLatencyMs:     summarizeMs + float64(result.GenerateMs) + float64(result.PlaybackMs),
		Voice:              e.synth.Voice(),
		Cancelled:          result.Cancelled,
		ReminderCount:      0,
	}
	if err := e.history.Append(rec); err != nil {
		e.log.Warn("history append failed: %v", err)
	}
}

func summaryTextOrEmpty(job SpeakJob, spokenText string) string {
	if job.Summarize {
		return spokenText
	}
	return ""
}

// pushDeferred appends job to the deferred list, dropping it silently if
// the list is already at capacity.
func (e *Engine) pushDeferred(job SpeakJob) {
	e.deferredMu.Lock()
	defer e.deferredMu.Unlock()
	if len(e.deferred) >= deferredCapacity {
		return
	}
	e.deferred = append(e.deferred, job)
}

// Cancel bumps the generation so every currently-queued job becomes
// stale, then cancels the reminder and the synthesizer. The queue is not
// drained synchronously; stale jobs divert through the deferral rules as
// they surface.
func (e *Engine) Cancel() {
	e.generation.Add(1)
	e.reminder.Cancel()
	e.synth.Cancel()
}

// SetVoice implements POST /set-voice.
func (e *Engine) SetVoice(name string) error {
	return e.synth.SetVoice(name)
}

// CancelReminder implements POST /cancel-reminder.
func (e *Engine) CancelReminder() uint32 {
	return e.reminder.Cancel()
}

// UserInput drains the deferred list, discarding items belonging to
// sessionID or carrying no session at all (the user is present and will
// see that output) and re-queuing the rest at the current generation with
// retries incremented. Returns the requeued count.
func (e *Engine) UserInput(sessionID string) int {
	e.reminder.Cancel()

	e.deferredMu.Lock()
	items := e.deferred
	e.deferred = nil
	e.deferredMu.Unlock()

	currentGen := e.generation.Load()
	requeued := 0
	for _, job := range items {
		if job.SessionID == "" || job.SessionID == sessionID {
			continue
		}
		job.Generation = currentGen
		job.Retries++
		select {
		case e.queue <- job:
			requeued++
		default:
			// Queue full: the job is dropped; there is no second deferral.
		}
	}
	return requeued
}

// Disable implements POST /disable: store disabled, bump generation,
// cancel, and clear the deferred list.
func (e *Engine) Disable() {
	e.enabled.Store(false)
	e.generation.Add(1)
	e.reminder.Cancel()
	e.synth.Cancel()

	e.deferredMu.Lock()
	e.deferred = nil
	e.deferredMu.Unlock()
}

// Enable implements POST /enable.
func (e *Engine) Enable() {
	e.enabled.Store(true)
}

// Status implements GET /status's queue/TTS fields.
func (e *Engine) Status() Status {
	e.deferredMu.Lock()
	deferredCount := len(e.deferred)
	e.deferredMu.Unlock()

	active, count := e.reminder.Status()
	return Status{
		Enabled:        e.enabled.Load(),
		Speaking:       e.synth.IsSpeaking(),
		Voice:          e.synth.Voice(),
		ReminderActive: active,
		ReminderCount:  count,
		QueueDepth:     len(e.queue),
		DeferredCount:  deferredCount,
	}
}
