// Package scanner walks a directory hierarchy into a model.Node tree.
//
// The walker runs on a single goroutine. It lists each directory through an
// Enumerator, which absorbs filesystem faults, publishes nodes into the tree
// as soon as they are built, and checks its context at two points: when it
// enters a directory and before it adds each file.
package scanner

import (
	"io/fs"
	"log/slog"
	"time"
)

// Source is the set of raw filesystem primitives a scan needs.
// Implementations exist for the local OS, go-billy filesystems and SFTP.
type Source interface {
	// ReadDir lists the immediate entries of a directory.
	ReadDir(path string) ([]fs.DirEntry, error)
	// Stat returns metadata for path, following a symlink at path itself.
	Stat(path string) (fs.FileInfo, error)
	// Join joins path elements using the source's separator.
	Join(elem ...string) string
}

// Entry is one listed filesystem entry.
type Entry struct {
	Name  string
	Path  string
	Size  int64
	Mtime time.Time
	Dir   bool
}

// Listing is the result of enumerating one directory: files and
// subdirectories in the order the Source returned them.
type Listing struct {
	Files []Entry
	Dirs  []Entry
}

// Option configures scanner components.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for absorbed faults and debug traces.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
