package hotkey

import evdev "github.com/holoplot/go-evdev"

// keyNames maps the configuration's string key identifiers (evdev
// KEY_* constant names) to evdev key codes, ported from hotkey.rs's
// resolve_key match. Unrecognized names are dropped with a warning by the
// caller rather than causing a startup failure.
var keyNames = map[string]evdev.EvCode{
	"KEY_LEFTMETA":   evdev.KEY_LEFTMETA,
	"KEY_RIGHTMETA":  evdev.KEY_RIGHTMETA,
	"KEY_LEFTALT":    evdev.KEY_LEFTALT,
	"KEY_RIGHTALT":   evdev.KEY_RIGHTALT,
	"KEY_LEFTCTRL":   evdev.KEY_LEFTCTRL,
	"KEY_RIGHTCTRL":  evdev.KEY_RIGHTCTRL,
	"KEY_LEFTSHIFT":  evdev.KEY_LEFTSHIFT,
	"KEY_RIGHTSHIFT": evdev.KEY_RIGHTSHIFT,
	"KEY_SPACE":      evdev.KEY_SPACE,
	"KEY_ENTER":      evdev.KEY_ENTER,
	"KEY_TAB":        evdev.KEY_TAB,
	"KEY_ESC":        evdev.KEY_ESC,
	"KEY_CAPSLOCK":   evdev.KEY_CAPSLOCK,
	"KEY_A": evdev.KEY_A, "KEY_B": evdev.KEY_B, "KEY_C": evdev.KEY_C,
	"KEY_D": evdev.KEY_D, "KEY_E": evdev.KEY_E, "KEY_F": evdev.KEY_F,
	"KEY_G": evdev.KEY_G, "KEY_H": evdev.KEY_H, "KEY_I": evdev.KEY_I,
	"KEY_J": evdev.KEY_J, "KEY_K": evdev.KEY_K, "KEY_L": evdev.KEY_L,
	"KEY_M": evdev.KEY_M, "KEY_N": evdev.KEY_N, "KEY_O": evdev.KEY_O,
	"KEY_P": evdev.KEY_P, "KEY_Q": evdev.KEY_Q, "KEY_R": evdev.KEY_R,
	"KEY_S": evdev.KEY_S, "KEY_T": evdev.KEY_T, "KEY_U": evdev.KEY_U,
	"KEY_V": evdev.KEY_V, "KEY_W": evdev.KEY_W, "KEY_X": evdev.KEY_X,
	"KEY_Y": evdev.KEY_Y, "KEY_Z": evdev.KEY_Z,
	"KEY_F1": evdev.KEY_F1, "KEY_F2": evdev.KEY_F2, "KEY_F3": evdev.KEY_F3,
	"KEY_F4": evdev.KEY_F4, "KEY_F5": evdev.KEY_F5, "KEY_F6": evdev.KEY_F6,
	"KEY_F7": evdev.KEY_F7, "KEY_F8": evdev.KEY_F8, "KEY_F9": evdev.KEY_F9,
	"KEY_F10": evdev.KEY_F10, "KEY_F11": evdev.KEY_F11, "KEY_F12": evdev.KEY_F12,
}

// resolveKey maps a configured key name to an evdev code. ok is false for
// unrecognized names.
func resolveKey(name string) (evdev.EvCode, bool) {
	code, ok := keyNames[name]
	return code, ok
}

// resolveCombo resolves a list of key names into a set, dropping (and
// letting the caller log) any name it doesn't recognize.
func resolveCombo(names []string, warn func(name string)) map[evdev.EvCode]struct{} {
	set := make(map[evdev.EvCode]struct{}, len(names))
	for _, n := range names {
		code, ok := resolveKey(n)
		if !ok {
			if warn != nil {
				warn(n)
			}
			continue
		}
		set[code] = struct{}{}
	}
	return set
}
