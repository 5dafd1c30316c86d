package session

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/volscan/internal/model"
	"github.com/sadopc/volscan/internal/scanner"
	"github.com/sadopc/volscan/internal/volume"
)

func quiet() Option { return WithLogger(slog.New(slog.DiscardHandler)) }

// sampleFS holds root/{a.txt (10 bytes), sub/{b.txt (20 bytes)}}.
func sampleFS(t *testing.T) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "/root/a.txt", make([]byte, 10), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/root/sub/b.txt", make([]byte, 20), 0o644))
	return fsys
}

// gateSource blocks ReadDir of one path until released.
type gateSource struct {
	scanner.Source
	block   string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate(src scanner.Source, block string) *gateSource {
	return &gateSource{
		Source:  src,
		block:   block,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateSource) ReadDir(path string) ([]fs.DirEntry, error) {
	if path == g.block {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.Source.ReadDir(path)
}

type panicSource struct{ scanner.Source }

func (panicSource) ReadDir(string) ([]fs.DirEntry, error) { panic("disk on fire") }

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func nodeNames(nodes []*model.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(volume.Volume{RootPath: "/"}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(volume.Volume{}, scanner.NewLocalSource())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSession_ScanSmallTree(t *testing.T) {
	s, err := New(volume.Volume{RootPath: "/root"}, scanner.NewBillySource(sampleFS(t)), quiet())
	require.NoError(t, err)

	rec := &recorder{}
	s.Subscribe(rec)

	require.NoError(t, s.Scan(context.Background()))

	st := s.State()
	assert.False(t, st.Busy)
	assert.Equal(t, int64(2), st.Files)
	assert.Equal(t, int64(1), st.Directories)
	assert.Equal(t, int64(0), st.Errors)
	assert.Equal(t, 4, st.Items)
	assert.NoError(t, s.Err())

	assert.Equal(t, []string{"root", "sub", "b.txt", "a.txt"}, nodeNames(s.Flat()))
	require.NotNil(t, s.Root())
	assert.Equal(t, int64(30), s.Root().SubtreeSize())

	events := rec.all()
	require.NotEmpty(t, events)
	assert.True(t, events[0].State.Busy, "first event announces the busy state")
	last := events[len(events)-1]
	assert.False(t, last.State.Busy)
	assert.True(t, last.Changed.Has(FieldBusy))
	assert.True(t, last.Changed.Has(FieldTree))
	for _, ev := range events {
		assert.NotZero(t, ev.Changed)
		assert.Equal(t, "/root", ev.Volume.RootPath)
	}
}

func TestSession_StartWhileBusy(t *testing.T) {
	gate := newGate(scanner.NewBillySource(sampleFS(t)), "/root/sub")
	s, err := New(volume.Volume{RootPath: "/root"}, gate, quiet())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	<-gate.entered

	root := s.Root()
	require.NotNil(t, root)
	assert.ErrorIs(t, s.Start(context.Background()), ErrBusy)
	assert.ErrorIs(t, s.Clear(), ErrBusy)
	assert.Same(t, root, s.Root(), "rejected commands must not touch the tree")
	assert.True(t, s.Busy())

	close(gate.release)
	s.Wait()

	assert.False(t, s.Busy())
	assert.Equal(t, int64(2), s.State().Files)
}

func TestSession_StopKeepsPartialTree(t *testing.T) {
	gate := newGate(scanner.NewBillySource(sampleFS(t)), "/root/sub")
	s, err := New(volume.Volume{RootPath: "/root"}, gate, quiet())
	require.NoError(t, err)

	rec := &recorder{}
	s.Subscribe(rec)

	require.NoError(t, s.Start(context.Background()))
	<-gate.entered
	s.Stop()
	close(gate.release)
	s.Wait()

	st := s.State()
	assert.False(t, st.Busy)
	assert.NoError(t, s.Err(), "cancellation is not an error")
	assert.Equal(t, []string{"root", "sub"}, nodeNames(s.Flat()))
	assert.Equal(t, 2, st.Items)

	events := rec.all()
	require.NotEmpty(t, events)
	assert.False(t, events[len(events)-1].State.Busy)
}

func TestSession_ParentContextCancels(t *testing.T) {
	gate := newGate(scanner.NewBillySource(sampleFS(t)), "/root/sub")
	s, err := New(volume.Volume{RootPath: "/root"}, gate, quiet())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	<-gate.entered
	cancel()
	close(gate.release)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not stop after its context was cancelled")
	}
	assert.False(t, s.Busy())
}

func TestSession_IdleStopAndWait(t *testing.T) {
	s, err := New(volume.Volume{RootPath: "/root"}, scanner.NewBillySource(sampleFS(t)), quiet())
	require.NoError(t, err)

	s.Stop()
	s.Wait()
	assert.False(t, s.Busy())
	assert.Nil(t, s.Root())
	assert.Nil(t, s.Flat())
}

func TestSession_Clear(t *testing.T) {
	s, err := New(volume.Volume{RootPath: "/root"}, scanner.NewBillySource(sampleFS(t)), quiet())
	require.NoError(t, err)
	require.NoError(t, s.Scan(context.Background()))

	rec := &recorder{}
	s.Subscribe(rec)
	require.NoError(t, s.Clear())

	assert.Nil(t, s.Root())
	assert.Nil(t, s.Flat())
	st := s.State()
	assert.Zero(t, st.Files)
	assert.Zero(t, st.Directories)
	assert.Zero(t, st.Elapsed)
	assert.Equal(t, "0:00", st.ElapsedText)

	events := rec.all()
	require.Len(t, events, 1)
	assert.True(t, events[0].Changed.Has(FieldFiles|FieldDirectories|FieldTree))
	assert.False(t, events[0].Changed.Has(FieldBusy))

	// A second clear changes nothing and publishes nothing.
	require.NoError(t, s.Clear())
	assert.Len(t, rec.all(), 1)
}

func TestSession_TickPublishesWhileBusy(t *testing.T) {
	gate := newGate(scanner.NewBillySource(sampleFS(t)), "/root/sub")
	s, err := New(volume.Volume{RootPath: "/root"}, gate, quiet(), WithTickInterval(5*time.Millisecond))
	require.NoError(t, err)

	rec := &recorder{}
	s.Subscribe(rec)
	require.NoError(t, s.Start(context.Background()))
	<-gate.entered

	require.Eventually(t, func() bool {
		for _, ev := range rec.all() {
			if ev.State.Busy && ev.Changed.Has(FieldTree) {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"root"}, nodeNames(s.Flat()))

	close(gate.release)
	s.Wait()
	assert.Len(t, s.Flat(), 4, "final projection is built at completion")
}

func TestSession_Dispatcher(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	dispatch := func(fn func()) {
		mu.Lock()
		calls++
		mu.Unlock()
		fn()
	}
	s, err := New(volume.Volume{RootPath: "/root"}, scanner.NewBillySource(sampleFS(t)), quiet(), WithDispatcher(dispatch))
	require.NoError(t, err)

	rec := &recorder{}
	s.Subscribe(rec)
	require.NoError(t, s.Scan(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(rec.all()), calls)
	assert.NotZero(t, calls)
}

func TestSession_Unsubscribe(t *testing.T) {
	s, err := New(volume.Volume{RootPath: "/root"}, scanner.NewBillySource(sampleFS(t)), quiet())
	require.NoError(t, err)

	rec := &recorder{}
	unsubscribe := s.Subscribe(rec)
	unsubscribe()
	unsubscribe()

	require.NoError(t, s.Scan(context.Background()))
	assert.Empty(t, rec.all())
}

func TestSession_RecoversPanic(t *testing.T) {
	s, err := New(volume.Volume{RootPath: "/root"}, panicSource{scanner.NewBillySource(sampleFS(t))}, quiet())
	require.NoError(t, err)

	require.NoError(t, s.Scan(context.Background()))
	assert.False(t, s.Busy())
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "disk on fire")

	// The session is usable again.
	assert.NoError(t, s.Clear())
}

func TestSession_AbsorbedErrorsReported(t *testing.T) {
	fsys := sampleFS(t)
	require.NoError(t, fsys.MkdirAll("/root/locked", 0o755))
	src := &deniedSource{Source: scanner.NewBillySource(fsys), denied: "/root/locked"}
	s, err := New(volume.Volume{RootPath: "/root"}, src, quiet())
	require.NoError(t, err)

	require.NoError(t, s.Scan(context.Background()))
	st := s.State()
	assert.Equal(t, int64(1), st.Errors)
	assert.Equal(t, int64(2), st.Files)
	assert.Equal(t, int64(2), st.Directories)
	p := s.Progress()
	assert.Equal(t, st.Errors, p.Errors)
	assert.False(t, p.StartTime.IsZero())
	assert.Equal(t, st.Elapsed, p.Duration)
}

type deniedSource struct {
	scanner.Source
	denied string
}

func (d *deniedSource) ReadDir(path string) ([]fs.DirEntry, error) {
	if path == d.denied {
		return nil, fs.ErrPermission
	}
	return d.Source.ReadDir(path)
}

func TestSession_RestartKeepsBusyTransitionsInOrder(t *testing.T) {
	s, err := New(volume.Volume{RootPath: "/root"}, scanner.NewBillySource(sampleFS(t)), quiet())
	require.NoError(t, err)

	rec := &recorder{}
	s.Subscribe(rec)

	// Each Start spins against the previous scan's completion.
	const scans = 200
	for range scans {
		for errors.Is(s.Start(context.Background()), ErrBusy) {
		}
	}
	s.Wait()

	var busy []bool
	for _, ev := range rec.all() {
		if ev.Changed.Has(FieldBusy) {
			busy = append(busy, ev.State.Busy)
		}
	}
	require.Len(t, busy, 2*scans, "every scan publishes its start and its end")
	for i, b := range busy {
		require.Equal(t, i%2 == 0, b, "transition %d", i)
	}
}

func TestSession_SizesFollowProjection(t *testing.T) {
	s, err := New(volume.Volume{RootPath: "/root"}, scanner.NewBillySource(sampleFS(t)), quiet())
	require.NoError(t, err)
	assert.Nil(t, s.Sizes())

	require.NoError(t, s.Scan(context.Background()))
	sizes := s.Sizes()
	require.Len(t, sizes, len(s.Flat()))
	assert.Equal(t, int64(30), sizes[s.Root()])

	require.NoError(t, s.Clear())
	assert.Nil(t, s.Sizes())
}

func TestField_String(t *testing.T) {
	assert.Equal(t, "none", Field(0).String())
	assert.Equal(t, "busy|tree", (FieldBusy | FieldTree).String())
	assert.True(t, FieldAll.Has(FieldErrors))
	assert.False(t, FieldFiles.Has(FieldFiles|FieldBusy))
}

func TestDiff(t *testing.T) {
	a := State{Files: 1, CurrentPath: "/a", ElapsedText: "0:01"}
	b := a
	assert.Zero(t, diff(a, b))

	b.Files = 2
	b.ElapsedText = "0:02"
	b.Items = 3
	assert.Equal(t, FieldFiles|FieldElapsed|FieldTree, diff(a, b))
}
