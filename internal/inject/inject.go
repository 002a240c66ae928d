// Package inject places dictation output on the clipboard and synthesizes
// a paste keystroke into the focused window. The primary path writes the
// clipboard natively via github.com/atotto/clipboard; the fallback stages
// it through the xclip CLI. Both synthesize the Ctrl+Shift+V paste via
// xdotool.
package inject

import (
	"bytes"
	"fmt"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"

	"github.com/Mizzlr/whisper-typer/internal/logger"
)

// Backend selects the typing strategy.
type Backend string

const (
	BackendNative  Backend = "native"
	BackendXdotool Backend = "xdotool"
)

// pasteSyncDelay gives the X server time to register the clipboard write
// before the synthetic paste keystroke fires.
const pasteSyncDelay = 10 * time.Millisecond

// Injector types text into the focused window via clipboard + paste.
type Injector struct {
	backend Backend
	log     *logger.Logger
}

// New builds an Injector for the named backend. Unrecognized backend
// names fall back to BackendNative.
func New(backend string, log *logger.Logger) *Injector {
	b := BackendNative
	if backend == string(BackendXdotool) {
		b = BackendXdotool
	}
	return &Injector{backend: b, log: log}
}

// Type injects text into the focused window. Empty input is a no-op.
func (i *Injector) Type(text string) error {
	if text == "" {
		return nil
	}

	if i.backend == BackendXdotool {
		return i.typeWithXdotool(text)
	}

	if err := i.typeWithNative(text); err != nil {
		i.log.Warn("native path failed, falling back to xdotool: %v", err)
		return i.typeWithXdotool(text)
	}
	return nil
}

// typeWithNative writes the clipboard through atotto/clipboard and
// synthesizes Ctrl+Shift+V via xdotool.
func (i *Injector) typeWithNative(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("inject: clipboard write: %w", err)
	}
	time.Sleep(pasteSyncDelay)
	return pasteKeystroke()
}

// typeWithXdotool stages the clipboard via the xclip CLI then synthesizes
// the paste.
func (i *Injector) typeWithXdotool(text string) error {
	cmd := exec.Command("xclip", "-selection", "clipboard")
	cmd.Stdin = bytes.NewBufferString(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("inject: xclip: %w", err)
	}
	time.Sleep(pasteSyncDelay)
	return pasteKeystroke()
}

func pasteKeystroke() error {
	cmd := exec.Command("xdotool", "key", "--clearmodifiers", "ctrl+shift+v")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("inject: xdotool key: %w", err)
	}
	return nil
}
