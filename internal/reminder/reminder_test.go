package reminder

import (
	"testing"
	"time"

	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/tts"
)

func TestReminderFiresRepeatedly(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	r := New(30*time.Millisecond, nil, log)

	var fired int
	speak := func(text string) tts.Result {
		fired++
		return tts.Result{}
	}

	r.Start("are you there?", speak)
	time.Sleep(150 * time.Millisecond)

	active, count := r.Status()
	if !active {
		t.Fatal("expected reminder to still be active")
	}
	if count < 2 {
		t.Fatalf("expected at least 2 fires, got %d", count)
	}
}

func TestReminderCancelStopsAndResetsCount(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	r := New(20*time.Millisecond, nil, log)

	r.Start("hello", func(string) tts.Result { return tts.Result{} })
	time.Sleep(80 * time.Millisecond)

	count := r.Cancel()
	if count == 0 {
		t.Fatal("expected Cancel to report a non-zero fire count")
	}

	active, afterCount := r.Status()
	if active {
		t.Fatal("expected reminder to be inactive after Cancel")
	}
	if afterCount != 0 {
		t.Fatalf("expected count reset to 0 after Cancel, got %d", afterCount)
	}

	time.Sleep(80 * time.Millisecond)
	_, stillZero := r.Status()
	if stillZero != 0 {
		t.Fatalf("expected no further fires after Cancel, got %d", stillZero)
	}
}

func TestReminderCancelInterruptsInFlightSpeak(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	var interrupted bool
	r := New(20*time.Millisecond, func() { interrupted = true }, log)

	r.Start("hold on", func(string) tts.Result { return tts.Result{} })
	time.Sleep(50 * time.Millisecond)
	r.Cancel()

	if !interrupted {
		t.Fatal("expected Cancel to invoke the interrupt hook while a task was active")
	}

	interrupted = false
	r.Cancel()
	if interrupted {
		t.Fatal("expected no interrupt when no task is active")
	}
}

func TestReminderStartTwiceCancelsPrevious(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	r := New(20*time.Millisecond, nil, log)

	r.Start("first", func(string) tts.Result { return tts.Result{} })
	time.Sleep(50 * time.Millisecond)

	r.Start("second", func(string) tts.Result { return tts.Result{} })
	_, count := r.Status()
	if count != 0 {
		t.Fatalf("expected count reset to 0 on restart, got %d", count)
	}
}
