package scanner

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync/atomic"
)

// Enumerator lists directories through a Source and turns every failure into
// an empty result. A single unreadable subtree never aborts a scan; the fault
// is logged and counted instead.
type Enumerator struct {
	src    Source
	logger *slog.Logger
	errs   atomic.Int64
}

// NewEnumerator creates an enumerator over src.
func NewEnumerator(src Source, opts ...Option) *Enumerator {
	o := buildOptions(opts)
	return &Enumerator{src: src, logger: o.logger}
}

// List returns the files and subdirectories directly inside dir.
// On any error the listing is empty.
func (e *Enumerator) List(dir string) Listing {
	entries, err := e.src.ReadDir(dir)
	if err != nil {
		e.absorb("list directory", dir, err)
		return Listing{}
	}

	var l Listing
	for _, entry := range entries {
		path := e.src.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			// Vanished between listing and stat: drop it from both counts.
			e.absorb("stat entry", path, err)
			continue
		}
		item := Entry{
			Name:  entry.Name(),
			Path:  path,
			Mtime: info.ModTime(),
			Dir:   entry.IsDir(),
		}
		if item.Dir {
			l.Dirs = append(l.Dirs, item)
		} else {
			item.Size = info.Size()
			l.Files = append(l.Files, item)
		}
	}
	return l
}

// Stat describes path itself. ok is false when it could not be read.
func (e *Enumerator) Stat(path string) (entry Entry, ok bool) {
	info, err := e.src.Stat(path)
	if err != nil {
		e.absorb("stat", path, err)
		return Entry{Name: path, Path: path, Dir: true}, false
	}
	name := info.Name()
	if name == "" || name == "." || name == "/" {
		name = path
	}
	return Entry{
		Name:  name,
		Path:  path,
		Mtime: info.ModTime(),
		Dir:   info.IsDir(),
	}, true
}

// Errors returns the number of absorbed faults since the last ResetErrors.
func (e *Enumerator) Errors() int64 {
	return e.errs.Load()
}

// ResetErrors zeroes the fault counter.
func (e *Enumerator) ResetErrors() {
	e.errs.Store(0)
}

func (e *Enumerator) absorb(op, path string, err error) {
	e.errs.Add(1)
	e.logger.Warn("skipping unreadable entry",
		"op", op,
		"path", path,
		"reason", faultReason(err),
		"error", err,
	)
}

func faultReason(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	case errors.Is(err, fs.ErrNotExist):
		return "not found"
	default:
		return "other"
	}
}
