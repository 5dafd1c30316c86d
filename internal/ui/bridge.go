package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/volscan/internal/session"
)

// EventMsg carries a session event into the Bubble Tea loop.
type EventMsg session.Event

// Bridge is a session.Listener that hands events to the UI goroutine.
// Events arriving faster than the UI reads them are merged: the newest
// State wins and the Changed masks are combined, so no change is lost and
// the publisher never blocks.
type Bridge struct {
	mu      sync.Mutex
	pending session.Event
	has     bool

	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewBridge returns an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// OnEvent implements session.Listener.
func (b *Bridge) OnEvent(ev session.Event) {
	b.mu.Lock()
	if b.has {
		ev.Changed |= b.pending.Changed
	}
	b.pending, b.has = ev, true
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// Next returns a command that waits for the next event. It yields nil once
// the bridge is closed.
func (b *Bridge) Next() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-b.done:
				return nil
			case <-b.signal:
			}
			if ev, ok := b.take(); ok {
				return EventMsg(ev)
			}
		}
	}
}

func (b *Bridge) take() (session.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev, ok := b.pending, b.has
	b.pending, b.has = session.Event{}, false
	return ev, ok
}

// Close releases any command blocked in Next.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}
