package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sadopc/volscan/internal/util"
	"github.com/sadopc/volscan/internal/volume"
)

// Manager holds one Session per ready volume and tracks which one the
// observer is looking at. Commands act on the selected session; only its
// events are forwarded to subscribers.
type Manager struct {
	lister   volume.Lister
	opts     []Option
	logger   *slog.Logger
	dispatch Dispatcher
	sources  SourceFactory

	mu       sync.RWMutex
	sessions []*Session
	unsubs   []func()
	selected *Session

	subMu sync.Mutex
	subs  listeners
}

// NewManager creates a manager over lister and loads its volumes. Options
// are applied to the manager and to every session it creates.
func NewManager(lister volume.Lister, opts ...Option) (*Manager, error) {
	if lister == nil {
		return nil, fmt.Errorf("new manager: nil lister: %w", ErrInvalidArgument)
	}
	o := buildOptions(opts)
	m := &Manager{
		lister:   lister,
		opts:     opts,
		logger:   o.logger,
		dispatch: o.dispatch,
		sources:  o.sources,
	}
	if err := m.Refresh(); err != nil {
		return nil, err
	}
	return m, nil
}

// Refresh reloads the volume list, keeping only ready volumes, and selects
// the first one. It returns ErrBusy if any session is scanning.
func (m *Manager) Refresh() error {
	m.mu.RLock()
	for _, s := range m.sessions {
		if s.Busy() {
			m.mu.RUnlock()
			return ErrBusy
		}
	}
	m.mu.RUnlock()

	vols, err := m.lister.ListVolumes()
	if err != nil {
		return fmt.Errorf("list volumes: %w", err)
	}
	ready := volume.ReadyOnly(vols)

	sessions := make([]*Session, 0, len(ready))
	unsubs := make([]func(), 0, len(ready))
	for _, v := range ready {
		src, err := m.sources(v)
		if err != nil {
			m.logger.Warn("skipping volume", "volume", v.RootPath, "error", err)
			continue
		}
		s, err := New(v, src, m.opts...)
		if err != nil {
			m.logger.Warn("skipping volume", "volume", v.RootPath, "error", err)
			continue
		}
		sessions = append(sessions, s)
		unsubs = append(unsubs, s.Subscribe(m.forwarder(s)))
	}

	m.mu.Lock()
	for _, u := range m.unsubs {
		u()
	}
	m.sessions = sessions
	m.unsubs = unsubs
	m.selected = nil
	if len(sessions) > 0 {
		m.selected = sessions[0]
	}
	selected := m.selected
	m.mu.Unlock()

	m.logger.Debug("volumes refreshed", "listed", len(vols), "ready", len(sessions))
	if selected != nil {
		m.announce(selected)
	}
	return nil
}

// Volumes returns the sessions in volume order.
func (m *Manager) Volumes() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// Selected returns the selected session, or nil.
func (m *Manager) Selected() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// Select makes the session for root the selected one and publishes its
// full state. A scan running on the previous selection keeps running.
func (m *Manager) Select(root string) error {
	m.mu.Lock()
	var found *Session
	for _, s := range m.sessions {
		if s.Volume().RootPath == root {
			found = s
			break
		}
	}
	if found == nil {
		m.mu.Unlock()
		return fmt.Errorf("select %q: %w", root, ErrUnknownVolume)
	}
	m.selected = found
	m.mu.Unlock()

	m.announce(found)
	return nil
}

// StartSelected starts a scan of the selected volume.
func (m *Manager) StartSelected(ctx context.Context) error {
	s := m.Selected()
	if s == nil {
		return ErrNoSelection
	}
	return s.Start(ctx)
}

// StopSelected cancels the scan of the selected volume, if any.
func (m *Manager) StopSelected() error {
	s := m.Selected()
	if s == nil {
		return ErrNoSelection
	}
	s.Stop()
	return nil
}

// ClearSelected discards the results of the selected volume.
func (m *Manager) ClearSelected() error {
	s := m.Selected()
	if s == nil {
		return ErrNoSelection
	}
	return s.Clear()
}

// StopAll cancels every running scan and waits for them to end.
func (m *Manager) StopAll() {
	for _, s := range m.Volumes() {
		s.Stop()
	}
	for _, s := range m.Volumes() {
		s.Wait()
	}
}

// FreeSpaceText describes the selected volume's space as "free (of total)".
// It is empty when nothing is selected.
func (m *Manager) FreeSpaceText() string {
	s := m.Selected()
	if s == nil {
		return ""
	}
	return FreeSpaceText(s.Volume())
}

// FreeSpaceText describes v's space as "free (of total)".
func FreeSpaceText(v volume.Volume) string {
	return fmt.Sprintf("%s (of %s)", util.FormatBytesU(v.FreeSpace), util.FormatBytesU(v.TotalSize))
}

// Subscribe registers l for events of the selected session. The returned
// func removes it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.subs.add(l)
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			m.subs.remove(id)
			m.subMu.Unlock()
		})
	}
}

// forwarder passes on events of s while it is selected. It runs inside the
// session's dispatcher.
func (m *Manager) forwarder(s *Session) Listener {
	return ListenerFunc(func(ev Event) {
		if m.Selected() != s {
			return
		}
		m.broadcast(ev)
	})
}

func (m *Manager) announce(s *Session) {
	ev := Event{Volume: s.Volume(), Changed: FieldAll, State: s.State()}
	m.dispatch(func() { m.broadcast(ev) })
}

func (m *Manager) broadcast(ev Event) {
	m.subMu.Lock()
	subs := m.subs.snapshot()
	m.subMu.Unlock()
	for _, l := range subs {
		l.OnEvent(ev)
	}
}
