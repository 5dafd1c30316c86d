// Package session runs scans of one volume and publishes their progress.
//
// A Session owns the tree of a single volume. Start launches the walker on
// its own goroutine and a ticker that, once per interval, rebuilds the flat
// projection and publishes an Event holding only the fields that changed
// since the last publication. Stop cancels the walk cooperatively; the
// partial tree is kept. A Manager groups one Session per ready volume and
// forwards the events of the selected one.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sadopc/volscan/internal/model"
	"github.com/sadopc/volscan/internal/scanner"
	"github.com/sadopc/volscan/internal/util"
	"github.com/sadopc/volscan/internal/volume"
)

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Session scans one volume.
type Session struct {
	vol      volume.Volume
	enum     *scanner.Enumerator
	walker   *scanner.Walker
	counters *scanner.Counters
	tree     model.Tree
	logger   *slog.Logger
	tick     time.Duration
	dispatch Dispatcher

	mu      sync.Mutex
	busy    bool
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
	elapsed time.Duration
	flat    []*model.Node
	sizes   model.Sizes
	lastErr error

	// emitMu orders state transitions with the delivery of their events.
	// Listeners must not call Start or Clear synchronously.
	emitMu sync.Mutex

	pubMu sync.Mutex
	last  State
	subs  listeners
}

// New creates an idle session that scans vol through src.
func New(vol volume.Volume, src scanner.Source, opts ...Option) (*Session, error) {
	if src == nil {
		return nil, fmt.Errorf("new session: nil source: %w", ErrInvalidArgument)
	}
	if vol.RootPath == "" {
		return nil, fmt.Errorf("new session: empty root path: %w", ErrInvalidArgument)
	}

	o := buildOptions(opts)
	logger := o.logger.With("volume", vol.RootPath)
	enum := scanner.NewEnumerator(src, scanner.WithLogger(logger))
	counters := &scanner.Counters{}

	return &Session{
		vol:      vol,
		enum:     enum,
		walker:   scanner.NewWalker(enum, counters, scanner.WithLogger(logger)),
		counters: counters,
		logger:   logger,
		tick:     o.tick,
		dispatch: o.dispatch,
		done:     closedDone,
	}, nil
}

// Volume returns the volume this session scans.
func (s *Session) Volume() volume.Volume { return s.vol }

// Start begins a scan and returns immediately. It returns ErrBusy, leaving
// every result untouched, if a scan is already running. Cancelling ctx has
// the same effect as Stop.
func (s *Session) Start(ctx context.Context) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.resetLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.busy = true
	s.cancel = cancel
	s.done = done
	s.started = time.Now()
	s.mu.Unlock()

	s.logger.Info("scan started")
	s.publish()

	go s.run(ctx, cancel, done)
	return nil
}

// Scan runs a scan to completion. Cancellation is not reported as an error.
func (s *Session) Scan(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.Wait()
	return nil
}

// Wait blocks until the current scan, if any, has finished.
func (s *Session) Wait() {
	<-s.Done()
}

// Done returns a channel closed when the current scan finishes. When no
// scan is running it is already closed.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Stop requests cancellation of the running scan. It is a no-op when idle.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		s.logger.Info("scan stop requested")
		cancel()
	}
}

// Clear discards the tree, counters and timings. It returns ErrBusy while a
// scan is running.
func (s *Session) Clear() error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.resetLocked()
	s.mu.Unlock()

	s.publish()
	return nil
}

// Busy reports whether a scan is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Root returns the volume node, or nil before the first directory is read.
// The tree may still be growing; see model.Node.
func (s *Session) Root() *model.Node { return s.tree.Root() }

// Flat returns the flat projection as of the last tick or completion.
// Callers must not modify it.
func (s *Session) Flat() []*model.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flat
}

// Sizes returns the subtree sizes of the nodes in Flat.
func (s *Session) Sizes() model.Sizes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizes
}

// Err returns the fault that ended the last scan, or nil if it finished or
// was cancelled.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	p := s.counters.Snapshot()

	s.mu.Lock()
	busy, elapsed, items := s.busy, s.elapsed, len(s.flat)
	s.mu.Unlock()

	return State{
		Files:       p.FilesScanned,
		Directories: p.DirsScanned,
		CurrentPath: p.CurrentPath,
		Progress:    p.Estimate,
		Elapsed:     elapsed,
		ElapsedText: util.FormatDuration(elapsed),
		Busy:        busy,
		Errors:      s.enum.Errors(),
		Items:       items,
	}
}

// Progress returns the scanner-level view of the session.
func (s *Session) Progress() scanner.Progress {
	st := s.State()
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	return scanner.Progress{
		CurrentPath:  st.CurrentPath,
		FilesScanned: st.Files,
		DirsScanned:  st.Directories,
		Estimate:     st.Progress,
		Errors:       st.Errors,
		StartTime:    started,
		Duration:     st.Elapsed,
	}
}

// Subscribe registers l for events. The returned func removes it.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.pubMu.Lock()
	id := s.subs.add(l)
	s.pubMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.pubMu.Lock()
			s.subs.remove(id)
			s.pubMu.Unlock()
		})
	}
}

func (s *Session) resetLocked() {
	s.tree.Reset()
	s.counters.Reset()
	s.enum.ResetErrors()
	s.flat = nil
	s.sizes = nil
	s.elapsed = 0
	s.lastErr = nil
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	result := make(chan error, 1)
	go func() { result <- s.walk(ctx) }()

	for {
		select {
		case <-ticker.C:
			s.refresh()
		case err := <-result:
			cancel()
			s.finish(err)
			return
		}
	}
}

func (s *Session) walk(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scan panicked: %v", r)
		}
	}()
	_, err = s.walker.Walk(ctx, &s.tree, s.vol.RootPath)
	return err
}

func (s *Session) finish(err error) {
	switch {
	case err == nil:
		s.logger.Info("scan finished", "files", s.counters.Files(), "dirs", s.counters.Dirs(), "errors", s.enum.Errors())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Info("scan cancelled", "files", s.counters.Files(), "dirs", s.counters.Dirs())
		err = nil
	default:
		s.logger.Error("scan aborted", "error", err)
	}

	flat := model.Flatten(s.tree.Root())
	sizes := model.SubtreeSizes(flat)

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.elapsed = time.Since(s.started)
	s.flat = flat
	s.sizes = sizes
	s.busy = false
	s.cancel = nil
	s.lastErr = err
	s.mu.Unlock()

	s.publish()
}

// refresh recomputes the elapsed time and flat projection, then publishes.
func (s *Session) refresh() {
	flat := model.Flatten(s.tree.Root())
	sizes := model.SubtreeSizes(flat)

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.elapsed = time.Since(s.started)
	s.flat = flat
	s.sizes = sizes
	s.mu.Unlock()

	s.publish()
}

// publish sends the fields that changed since the last publication. Callers
// hold emitMu, so a transition is never diffed against a later one.
func (s *Session) publish() {
	s.pubMu.Lock()
	st := s.State()
	changed := diff(s.last, st)
	s.last = st
	subs := s.subs.snapshot()
	s.pubMu.Unlock()

	if changed == 0 {
		return
	}
	ev := Event{Volume: s.vol, Changed: changed, State: st}
	for _, l := range subs {
		s.dispatch(func() { l.OnEvent(ev) })
	}
}
