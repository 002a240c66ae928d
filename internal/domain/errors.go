// Package domain holds the sentinel errors shared across packages that
// need to distinguish fatal-at-startup failures from degraded or per-item
// ones.
package domain

import "errors"

// Sentinel errors used across layers. Both are fatal at startup.
var (
	ErrNoKeyboard    = errors.New("no keyboard input device found")
	ErrModelNotFound = errors.New("asr model not found")
)
