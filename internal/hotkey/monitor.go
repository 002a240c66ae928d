// Package hotkey watches raw keyboard input devices via evdev and emits
// Pressed and Released edges when any configured key-set becomes a subset
// of the currently-held keys.
package hotkey

import (
	"context"
	"fmt"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"github.com/Mizzlr/whisper-typer/internal/domain"
	"github.com/Mizzlr/whisper-typer/internal/logger"
)

// Edge is the kind of hotkey transition observed.
type Edge int

const (
	Pressed Edge = iota
	Released
)

func (e Edge) String() string {
	if e == Pressed {
		return "pressed"
	}
	return "released"
}

// Event is delivered on the monitor's channel for every edge.
type Event struct {
	Edge Edge
}

// eventChanCapacity bounds the edge channel. Hotkey edges are rare, so a
// full channel indicates a stuck consumer and sends drop rather than
// block.
const eventChanCapacity = 16

// Monitor watches one or more keyboard devices for configured key combos.
type Monitor struct {
	combos []map[evdev.EvCode]struct{}
	log    *logger.Logger

	mu     sync.Mutex
	held   map[evdev.EvCode]bool
	active bool

	events chan Event
}

// New builds a Monitor from the primary combo and any alternates.
// Unknown key names are dropped with a warning rather than failing
// startup.
func New(primary []string, alternates [][]string, log *logger.Logger) *Monitor {
	warn := func(name string) { log.Warn("unknown key name %q", name) }

	combos := []map[evdev.EvCode]struct{}{resolveCombo(primary, warn)}
	for _, alt := range alternates {
		combos = append(combos, resolveCombo(alt, warn))
	}

	return &Monitor{
		combos: combos,
		log:    log,
		held:   make(map[evdev.EvCode]bool),
		events: make(chan Event, eventChanCapacity),
	}
}

// Events returns the channel Pressed/Released edges are delivered on.
func (m *Monitor) Events() <-chan Event { return m.events }

// findKeyboards enumerates /dev/input/event* devices and keeps those
// that advertise both KEY_A and KEY_ENTER — a capability set only real
// keyboards carry.
func findKeyboards(log *logger.Logger) ([]string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("hotkey: enumerate devices: %w", err)
	}

	var keyboards []string
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		var hasA, hasEnter bool
		for _, code := range dev.CapableEvents(evdev.EV_KEY) {
			switch code {
			case evdev.KEY_A:
				hasA = true
			case evdev.KEY_ENTER:
				hasEnter = true
			}
		}
		dev.Close()
		if hasA && hasEnter {
			keyboards = append(keyboards, p.Path)
			log.Info("using keyboard device %s (%s)", p.Path, p.Name)
		}
	}

	if len(keyboards) == 0 {
		return nil, domain.ErrNoKeyboard
	}
	return keyboards, nil
}

// anyComboActive reports whether any configured combo is a subset of the
// currently-held key set. Caller must hold m.mu.
func (m *Monitor) anyComboActiveLocked() bool {
	for _, combo := range m.combos {
		if len(combo) == 0 {
			continue
		}
		satisfied := true
		for k := range combo {
			if !m.held[k] {
				satisfied = false
				break
			}
		}
		if satisfied {
			return true
		}
	}
	return false
}

// Run enumerates keyboards and processes events from all of them until
// ctx is cancelled. It returns domain.ErrNoKeyboard if no keyboard device
// is found; without one the daemon can never be triggered.
func (m *Monitor) Run(ctx context.Context) error {
	devices, err := findKeyboards(m.log)
	if err != nil {
		return fmt.Errorf("hotkey: %w — add this user to the 'input' group and retry", err)
	}

	var wg sync.WaitGroup
	for _, path := range devices {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := m.monitorDevice(ctx, path); err != nil && ctx.Err() == nil {
				m.log.Error("device %s stopped: %v", path, err)
			}
		}(path)
	}
	wg.Wait()
	return nil
}

// monitorDevice reads raw key events from one device, recomputing
// combo-active state after every mutation and firing edges on transition.
func (m *Monitor) monitorDevice(ctx context.Context, path string) error {
	dev, err := evdev.Open(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := dev.ReadOne()
		if err != nil {
			return err
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}

		m.mu.Lock()
		switch ev.Value {
		case 1: // press
			m.held[ev.Code] = true
		case 0: // release
			delete(m.held, ev.Code)
		default: // 2 == autorepeat, ignored
			m.mu.Unlock()
			continue
		}

		wasActive := m.active
		nowActive := m.anyComboActiveLocked()
		m.active = nowActive
		m.mu.Unlock()

		if !wasActive && nowActive {
			m.emit(Event{Edge: Pressed})
		} else if wasActive && !nowActive {
			m.emit(Event{Edge: Released})
		}
	}
}

func (m *Monitor) emit(ev Event) {
	m.log.Debug("combo %s", ev.Edge)
	select {
	case m.events <- ev:
	default:
		m.log.Warn("event channel full, dropping %s edge", ev.Edge)
	}
}
