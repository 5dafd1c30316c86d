package scanner

import (
	"context"
	"log/slog"

	"github.com/sadopc/volscan/internal/model"
)

// Walker builds a model.Node tree by recursive, depth-first traversal.
//
// Within one directory the walker publishes the directory node first, then
// recurses into each subdirectory in enumeration order, then appends the
// directory's files. Cancellation is checked on entry to every directory and
// before every file, so a Stop takes effect within one enumeration call.
type Walker struct {
	enum     *Enumerator
	counters *Counters
	logger   *slog.Logger
}

// NewWalker creates a walker that lists through enum and reports to counters.
func NewWalker(enum *Enumerator, counters *Counters, opts ...Option) *Walker {
	o := buildOptions(opts)
	if counters == nil {
		counters = &Counters{}
	}
	return &Walker{enum: enum, counters: counters, logger: o.logger}
}

// Counters returns the totals this walker updates.
func (w *Walker) Counters() *Counters { return w.counters }

// Walk scans rootPath and publishes the resulting volume node into tree.
//
// It returns ctx.Err() when cancelled. Nodes published before cancellation
// stay in the tree, and every one of them is reachable from the root.
func (w *Walker) Walk(ctx context.Context, tree *model.Tree, rootPath string) (*model.Node, error) {
	root, _ := w.enum.Stat(rootPath)
	root.Path = rootPath
	return w.walk(ctx, tree, root, model.KindVolume, nil)
}

func (w *Walker) walk(ctx context.Context, tree *model.Tree, dir Entry, kind model.Kind, parent *model.Node) (*model.Node, error) {
	// Check point 1: directory entry.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	listing := w.enum.List(dir.Path)

	node := &model.Node{
		Name:      dir.Name,
		Path:      dir.Path,
		Kind:      kind,
		FileCount: int64(len(listing.Files)),
		DirCount:  int64(len(listing.Dirs)),
		Mtime:     dir.Mtime,
		Parent:    parent,
	}
	if parent == nil {
		tree.SetRoot(node)
	} else if err := parent.AddChild(node); err != nil {
		return nil, err
	}
	w.counters.Enter(dir.Path)
	w.logger.Debug("entered directory", "path", dir.Path, "files", len(listing.Files), "dirs", len(listing.Dirs))

	w.counters.AddDirs(len(listing.Dirs))
	n := len(listing.Dirs)
	for i, sub := range listing.Dirs {
		w.counters.Enter(sub.Path)
		w.counters.SetEstimate(estimate(i, n))
		if _, err := w.walk(ctx, tree, sub, model.KindDirectory, node); err != nil {
			return node, err
		}
	}

	w.counters.AddFiles(len(listing.Files))
	for _, f := range listing.Files {
		// Check point 2: file entry.
		if err := ctx.Err(); err != nil {
			return node, err
		}
		file := &model.Node{
			Name:   f.Name,
			Path:   f.Path,
			Kind:   model.KindFile,
			Size:   f.Size,
			Mtime:  f.Mtime,
			Parent: node,
		}
		if err := node.AddChild(file); err != nil {
			return node, err
		}
	}

	return node, nil
}
