package session

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/volscan/internal/scanner"
	"github.com/sadopc/volscan/internal/volume"
)

func staticLister(vols ...volume.Volume) volume.Lister {
	return volume.ListerFunc(func() ([]volume.Volume, error) { return vols, nil })
}

func twoVolumeFS(t *testing.T) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	require.NoError(t, util.WriteFile(fsys, "/a/one.txt", []byte("1"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/b/two.txt", []byte("22"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/b/nested/three.txt", []byte("333"), 0o644))
	return fsys
}

func billyFactory(fsys billy.Filesystem) Option {
	return WithSourceFactory(func(volume.Volume) (scanner.Source, error) {
		return scanner.NewBillySource(fsys), nil
	})
}

func TestNewManager_NilLister(t *testing.T) {
	_, err := NewManager(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewManager_ListerError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewManager(volume.ListerFunc(func() ([]volume.Volume, error) { return nil, boom }), quiet())
	assert.ErrorIs(t, err, boom)
}

func TestManager_OnlyReadyVolumes(t *testing.T) {
	m, err := NewManager(staticLister(
		volume.Volume{RootPath: "/cdrom", Ready: false},
		volume.Volume{RootPath: "/a", Ready: true},
		volume.Volume{RootPath: "/b", Ready: true},
	), billyFactory(twoVolumeFS(t)), quiet())
	require.NoError(t, err)

	vols := m.Volumes()
	require.Len(t, vols, 2)
	assert.Equal(t, "/a", vols[0].Volume().RootPath)
	assert.Equal(t, "/b", vols[1].Volume().RootPath)
	require.NotNil(t, m.Selected())
	assert.Equal(t, "/a", m.Selected().Volume().RootPath)
}

func TestManager_SkipsVolumesWithoutSource(t *testing.T) {
	fsys := twoVolumeFS(t)
	m, err := NewManager(staticLister(
		volume.Volume{RootPath: "/a", Ready: true},
		volume.Volume{RootPath: "/b", Ready: true},
	), WithSourceFactory(func(v volume.Volume) (scanner.Source, error) {
		if v.RootPath == "/a" {
			return nil, errors.New("unreachable")
		}
		return scanner.NewBillySource(fsys), nil
	}), quiet())
	require.NoError(t, err)

	require.Len(t, m.Volumes(), 1)
	assert.Equal(t, "/b", m.Selected().Volume().RootPath)
}

func TestManager_NoSelection(t *testing.T) {
	m, err := NewManager(staticLister(), quiet())
	require.NoError(t, err)

	assert.Nil(t, m.Selected())
	assert.ErrorIs(t, m.StartSelected(context.Background()), ErrNoSelection)
	assert.ErrorIs(t, m.StopSelected(), ErrNoSelection)
	assert.ErrorIs(t, m.ClearSelected(), ErrNoSelection)
	assert.Empty(t, m.FreeSpaceText())
	assert.ErrorIs(t, m.Select("/"), ErrUnknownVolume)
}

func TestManager_FreeSpaceText(t *testing.T) {
	m, err := NewManager(staticLister(volume.Volume{
		RootPath:  "/a",
		Ready:     true,
		FreeSpace: 100 << 20,
		TotalSize: 1 << 30,
	}), billyFactory(twoVolumeFS(t)), quiet())
	require.NoError(t, err)

	assert.Equal(t, "100.0 MB (of 1.0 GB)", m.FreeSpaceText())
}

func TestManager_SelectAnnouncesFullState(t *testing.T) {
	m, err := NewManager(staticLister(
		volume.Volume{RootPath: "/a", Ready: true},
		volume.Volume{RootPath: "/b", Ready: true},
	), billyFactory(twoVolumeFS(t)), quiet())
	require.NoError(t, err)

	rec := &recorder{}
	m.Subscribe(rec)

	assert.ErrorIs(t, m.Select("/nope"), ErrUnknownVolume)
	assert.Equal(t, "/a", m.Selected().Volume().RootPath)

	require.NoError(t, m.Select("/b"))
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, FieldAll, events[0].Changed)
	assert.Equal(t, "/b", events[0].Volume.RootPath)
}

func TestManager_ForwardsSelectedOnly(t *testing.T) {
	m, err := NewManager(staticLister(
		volume.Volume{RootPath: "/a", Ready: true},
		volume.Volume{RootPath: "/b", Ready: true},
	), billyFactory(twoVolumeFS(t)), quiet())
	require.NoError(t, err)

	rec := &recorder{}
	m.Subscribe(rec)

	require.NoError(t, m.StartSelected(context.Background()))
	m.Selected().Wait()

	// /b is not selected, so its scan is silent.
	require.NoError(t, m.Volumes()[1].Scan(context.Background()))

	events := rec.all()
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, "/a", ev.Volume.RootPath)
	}
	assert.False(t, events[len(events)-1].State.Busy)
	assert.Equal(t, int64(1), events[len(events)-1].State.Files)

	b := m.Volumes()[1].State()
	assert.Equal(t, int64(2), b.Files)
	assert.Equal(t, int64(1), b.Directories)
}

func TestManager_CommandsWhileBusy(t *testing.T) {
	gate := newGate(scanner.NewBillySource(twoVolumeFS(t)), "/a")
	m, err := NewManager(staticLister(volume.Volume{RootPath: "/a", Ready: true}),
		WithSourceFactory(func(volume.Volume) (scanner.Source, error) { return gate, nil }), quiet())
	require.NoError(t, err)

	require.NoError(t, m.StartSelected(context.Background()))
	<-gate.entered

	assert.ErrorIs(t, m.StartSelected(context.Background()), ErrBusy)
	assert.ErrorIs(t, m.ClearSelected(), ErrBusy)
	assert.ErrorIs(t, m.Refresh(), ErrBusy)

	require.NoError(t, m.StopSelected())
	close(gate.release)
	m.StopAll()

	assert.False(t, m.Selected().Busy())
	require.NoError(t, m.ClearSelected())
	require.NoError(t, m.Refresh())
}

func TestFreeSpaceText(t *testing.T) {
	assert.Equal(t, "0 Bytes (of 0 Bytes)", FreeSpaceText(volume.Volume{}))
	assert.Equal(t, "512 Bytes (of 2.0 KB)", FreeSpaceText(volume.Volume{FreeSpace: 512, TotalSize: 2048}))
}
